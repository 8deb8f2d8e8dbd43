package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/product"
)

// ViewFinder is the read side of the view repository.
type ViewFinder interface {
	FindByID(ctx context.Context, id product.ProductID) (*product.View, error)
	Search(ctx context.Context, pattern string, limit, offset int) ([]*product.View, int, error)
}

type QueryHandler struct {
	views  ViewFinder
	logger *slog.Logger
}

func NewQueryHandler(views ViewFinder, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{views: views, logger: logger}
}

type productResponse struct {
	ProductID   string               `json:"product_id"`
	Version     int64                `json:"version"`
	SkuID       string               `json:"sku_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      string               `json:"status"`
	Catalogs    []product.CatalogRef `json:"catalogs,omitempty"`
	Events      []product.ViewEvent  `json:"events,omitempty"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

type searchResponse struct {
	Products []productResponse `json:"products"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func toProductResponse(v *product.View) productResponse {
	return productResponse{
		ProductID:   v.ID.String(),
		Version:     v.Version,
		SkuID:       v.SkuID.String(),
		Name:        v.Name,
		Description: v.Description,
		Status:      string(v.Status),
		Catalogs:    v.Catalogs,
		Events:      v.Events,
		CreatedAt:   v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := product.ParseProductID(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	view, err := h.views.FindByID(r.Context(), id)
	if err != nil {
		h.logger.Error("view lookup failed", "product_id", id.String(), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if view == nil {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toProductResponse(view))
}

func (h *QueryHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	views, total, err := h.views.Search(r.Context(), q.Get("q"), limit, offset)
	if err != nil {
		h.logger.Error("view search failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := searchResponse{
		Products: make([]productResponse, 0, len(views)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}
	for _, v := range views {
		resp.Products = append(resp.Products, toProductResponse(v))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

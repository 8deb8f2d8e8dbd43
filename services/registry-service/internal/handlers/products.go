package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/orderflow/libs/product"
	"github.com/md-rashed-zaman/orderflow/services/registry-service/internal/registry"
)

type ProductHandler struct {
	service *registry.Service
	logger  *slog.Logger
}

func NewProductHandler(service *registry.Service, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

type registerRequest struct {
	SkuID       string `json:"sku_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateNameRequest struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

type updateDescriptionRequest struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
}

type retireRequest struct {
	ProductID string `json:"product_id"`
}

type productResponse struct {
	ProductID   string `json:"product_id"`
	SkuID       string `json:"sku_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Version     int64  `json:"version"`
}

func toResponse(p *product.Product) productResponse {
	return productResponse{
		ProductID:   p.ID.String(),
		SkuID:       p.SkuID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Version:     p.Version,
	}
}

func (h *ProductHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	sku, err := product.ParseSkuID(strings.TrimSpace(req.SkuID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.RegisterProduct(r.Context(), sku, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		h.writeCommandError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toResponse(p))
}

func (h *ProductHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	id, err := product.ParseProductID(req.ProductID)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	p, err := h.service.UpdateName(r.Context(), id, strings.TrimSpace(req.Name))
	if err != nil {
		h.writeCommandError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toResponse(p))
}

func (h *ProductHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateDescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	id, err := product.ParseProductID(req.ProductID)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	p, err := h.service.UpdateDescription(r.Context(), id, req.Description)
	if err != nil {
		h.writeCommandError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toResponse(p))
}

func (h *ProductHandler) Retire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req retireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	id, err := product.ParseProductID(req.ProductID)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	p, err := h.service.Retire(r.Context(), id)
	if err != nil {
		h.writeCommandError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toResponse(p))
}

func (h *ProductHandler) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrSkuExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, product.ErrBlankName),
		errors.Is(err, product.ErrRetired),
		errors.Is(err, product.ErrNotActive):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("command failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

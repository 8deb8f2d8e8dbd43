package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/product"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/projection"
)

// EventSource reads one aggregate's full history from the event log.
type EventSource interface {
	ListByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]cqrs.LogEntry, error)
}

type ViewSaver interface {
	Save(ctx context.Context, view *product.View) error
}

// RebuildHandler replays a product's event history from scratch and
// overwrites its view. It repairs views corrupted by bad deploys or
// exhausted retries.
type RebuildHandler struct {
	events EventSource
	views  ViewSaver
	logger *slog.Logger
}

func NewRebuildHandler(events EventSource, views ViewSaver, logger *slog.Logger) *RebuildHandler {
	return &RebuildHandler{events: events, views: views, logger: logger}
}

type rebuildResponse struct {
	ProductID     string `json:"product_id"`
	EventsApplied int    `json:"events_applied"`
	Version       int64  `json:"version"`
}

func (h *RebuildHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := product.ParseProductID(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	entries, err := h.events.ListByAggregate(r.Context(), product.AggregateProduct, id.UUID())
	if err != nil {
		h.logger.Error("event history read failed", "product_id", id.String(), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	envs := make([]product.Envelope, 0, len(entries))
	for _, entry := range entries {
		env, err := product.DecodeEnvelope(entry)
		if err != nil {
			h.logger.Error("event history undecodable",
				"product_id", id.String(), "log_id", entry.ID, "err", err)
			http.Error(w, "event history undecodable", http.StatusConflict)
			return
		}
		envs = append(envs, env)
	}

	result := cqrs.ProjectAll[product.View, product.Event](projection.NewViewProjector(), nil, envs, 0)
	if result.IsFailure() {
		h.logger.Error("replay failed", "product_id", id.String(), "reason", result.FailureReason())
		http.Error(w, "replay failed: "+result.FailureReason(), http.StatusConflict)
		return
	}
	view := result.State()
	if view == nil {
		http.Error(w, "replay produced no view", http.StatusConflict)
		return
	}

	if err := h.views.Save(r.Context(), view); err != nil {
		h.logger.Error("rebuilt view save failed", "product_id", id.String(), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("view rebuilt", "product_id", id.String(), "version", view.Version, "events", len(envs))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rebuildResponse{
		ProductID:     id.String(),
		EventsApplied: len(envs),
		Version:       view.Version,
	})
}

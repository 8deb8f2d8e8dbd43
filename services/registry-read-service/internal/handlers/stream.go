package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/orderflow/libs/product"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/broadcast"
)

// Subscriber hands out live notification feeds.
type Subscriber interface {
	Subscribe() *broadcast.Subscription
}

// StreamHandler serves view-change notifications over server-sent events.
// Without an id filter the stream carries every product; with one it
// carries only that product's changes.
type StreamHandler struct {
	bus    Subscriber
	logger *slog.Logger
}

func NewStreamHandler(bus Subscriber, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{bus: bus, logger: logger}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var filter string
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := product.ParseProductID(raw)
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}
		filter = id.String()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.bus.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-sub.Events():
			if !ok {
				return
			}
			if filter != "" && n.ProductID != filter {
				continue
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("notification encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

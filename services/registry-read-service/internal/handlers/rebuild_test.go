package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/product"
)

type fakeEventSource struct {
	entries []cqrs.LogEntry
}

func (f *fakeEventSource) ListByAggregate(_ context.Context, _ string, _ uuid.UUID) ([]cqrs.LogEntry, error) {
	return f.entries, nil
}

type fakeSaver struct {
	saved *product.View
}

func (f *fakeSaver) Save(_ context.Context, view *product.View) error {
	f.saved = view
	return nil
}

func historyFor(t *testing.T, id product.ProductID) []cqrs.LogEntry {
	t.Helper()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	events := []product.Event{
		product.Registered{ID: id, SkuID: "ABC-12345", Name: "Widget", Description: "A widget"},
		product.NameUpdated{ID: id, OldName: "Widget", NewName: "Gadget"},
		product.Retired{ID: id},
	}
	var entries []cqrs.LogEntry
	for i, ev := range events {
		entry, err := product.ToLogEntry(product.Envelope{Event: ev, Sequence: int64(i + 1), OccurredAt: at.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("encode history: %v", err)
		}
		entry.ID = int64(i + 1)
		entries = append(entries, entry)
	}
	return entries
}

func TestRebuildReplaysFullHistory(t *testing.T) {
	id := product.NewProductID()
	saver := &fakeSaver{}
	h := NewRebuildHandler(&fakeEventSource{entries: historyFor(t, id)}, saver, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/rebuild?id="+id.String(), nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if saver.saved == nil {
		t.Fatalf("rebuilt view not saved")
	}
	if saver.saved.Name != "Gadget" || saver.saved.Status != product.LifecycleRetired || saver.saved.Version != 3 {
		t.Fatalf("rebuilt view wrong: %+v", saver.saved)
	}

	var resp rebuildResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if resp.EventsApplied != 3 || resp.Version != 3 {
		t.Fatalf("response wrong: %+v", resp)
	}
}

func TestRebuildUnknownProductIs404(t *testing.T) {
	h := NewRebuildHandler(&fakeEventSource{}, &fakeSaver{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/rebuild?id="+product.NewProductID().String(), nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRebuildRejectsGet(t *testing.T) {
	h := NewRebuildHandler(&fakeEventSource{}, &fakeSaver{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products/rebuild", nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

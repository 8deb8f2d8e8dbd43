package product

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
)

func TestLogEntryRoundTrip(t *testing.T) {
	id := NewProductID()
	events := []Event{
		Registered{ID: id, SkuID: "ABC-12345", Name: "Widget", Description: "A widget"},
		NameUpdated{ID: id, OldName: "Widget", NewName: "Gadget"},
		DescriptionUpdated{ID: id, OldDescription: "A widget", NewDescription: ""},
		Retired{ID: id},
	}

	for i, ev := range events {
		env := cqrs.Wrap[Event](ev, int64(i+1))
		entry, err := ToLogEntry(env)
		if err != nil {
			t.Fatalf("ToLogEntry(%s) failed: %v", ev.EventType(), err)
		}
		if entry.AggregateType != AggregateProduct || entry.SchemaVersion != EventVersionV1 {
			t.Fatalf("entry metadata wrong: %+v", entry)
		}
		if entry.AggregateID != id.UUID() {
			t.Fatalf("entry aggregate id wrong: %s", entry.AggregateID)
		}

		decoded, err := DecodeEnvelope(entry)
		if err != nil {
			t.Fatalf("DecodeEnvelope(%s) failed: %v", ev.EventType(), err)
		}
		if decoded.Sequence != env.Sequence {
			t.Fatalf("sequence lost: got %d want %d", decoded.Sequence, env.Sequence)
		}
		if decoded.Event != ev {
			t.Fatalf("event lost in round trip: got %+v want %+v", decoded.Event, ev)
		}
	}
}

func TestDecodeEnvelopeRejectsUnknownSchemaVersion(t *testing.T) {
	entry := cqrs.LogEntry{
		AggregateType: AggregateProduct,
		AggregateID:   NewProductID().UUID(),
		Sequence:      1,
		EventType:     string(KindRetired),
		SchemaVersion: 2,
		OccurredAt:    time.Now().UTC(),
	}
	_, err := DecodeEnvelope(entry)
	if !errors.Is(err, ErrUnknownSchemaVersion) {
		t.Fatalf("expected ErrUnknownSchemaVersion, got %v", err)
	}
}

func TestDecodeEnvelopeRejectsForeignAggregate(t *testing.T) {
	entry := cqrs.LogEntry{
		AggregateType: "Order",
		AggregateID:   NewProductID().UUID(),
		Sequence:      1,
		EventType:     string(KindRetired),
		SchemaVersion: EventVersionV1,
	}
	if _, err := DecodeEnvelope(entry); err == nil {
		t.Fatalf("expected error for foreign aggregate type")
	}
}

func TestDecodeEnvelopeRejectsUnknownEventType(t *testing.T) {
	entry := cqrs.LogEntry{
		AggregateType: AggregateProduct,
		AggregateID:   NewProductID().UUID(),
		Sequence:      1,
		EventType:     "ProductExploded",
		SchemaVersion: EventVersionV1,
	}
	if _, err := DecodeEnvelope(entry); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

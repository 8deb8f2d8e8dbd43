package product

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
)

// ErrUnknownSchemaVersion marks a log entry written by a newer deployment.
// Such entries must not be projected by this build.
var ErrUnknownSchemaVersion = errors.New("unknown product event schema version")

type registeredPayload struct {
	SkuID       string `json:"skuId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type retiredPayload struct{}

type nameUpdatedPayload struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

type descriptionUpdatedPayload struct {
	OldDescription string `json:"oldDescription"`
	NewDescription string `json:"newDescription"`
}

// EncodePayload serializes the event's payload for the event log.
func EncodePayload(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case Registered:
		return json.Marshal(registeredPayload{SkuID: e.SkuID.String(), Name: e.Name, Description: e.Description})
	case Retired:
		return json.Marshal(retiredPayload{})
	case NameUpdated:
		return json.Marshal(nameUpdatedPayload{OldName: e.OldName, NewName: e.NewName})
	case DescriptionUpdated:
		return json.Marshal(descriptionUpdatedPayload{OldDescription: e.OldDescription, NewDescription: e.NewDescription})
	default:
		return nil, fmt.Errorf("unknown product event type %q", ev.EventType())
	}
}

// ToLogEntry converts an envelope into its durable form. The log id is
// assigned on append.
func ToLogEntry(env Envelope) (cqrs.LogEntry, error) {
	payload, err := EncodePayload(env.Event)
	if err != nil {
		return cqrs.LogEntry{}, err
	}
	return cqrs.LogEntry{
		AggregateType: env.Event.AggregateType(),
		AggregateID:   env.Event.AggregateID(),
		Sequence:      env.Sequence,
		EventType:     env.Event.EventType(),
		SchemaVersion: env.Event.SchemaVersion(),
		OccurredAt:    env.OccurredAt,
		Payload:       payload,
	}, nil
}

// DecodeEnvelope rebuilds a product envelope from a durable log entry.
func DecodeEnvelope(entry cqrs.LogEntry) (Envelope, error) {
	if entry.AggregateType != AggregateProduct {
		return Envelope{}, fmt.Errorf("log entry %d is not a product event (aggregate type %q)", entry.ID, entry.AggregateType)
	}
	if entry.SchemaVersion != EventVersionV1 {
		return Envelope{}, fmt.Errorf("%w: %d on log entry %d", ErrUnknownSchemaVersion, entry.SchemaVersion, entry.ID)
	}
	id := ProductID(entry.AggregateID)

	var ev Event
	switch Kind(entry.EventType) {
	case KindRegistered:
		var p registeredPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return Envelope{}, fmt.Errorf("decode %s payload: %w", entry.EventType, err)
		}
		ev = Registered{ID: id, SkuID: SkuID(p.SkuID), Name: p.Name, Description: p.Description}
	case KindRetired:
		ev = Retired{ID: id}
	case KindNameUpdated:
		var p nameUpdatedPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return Envelope{}, fmt.Errorf("decode %s payload: %w", entry.EventType, err)
		}
		ev = NameUpdated{ID: id, OldName: p.OldName, NewName: p.NewName}
	case KindDescriptionUpdated:
		var p descriptionUpdatedPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return Envelope{}, fmt.Errorf("decode %s payload: %w", entry.EventType, err)
		}
		ev = DescriptionUpdated{ID: id, OldDescription: p.OldDescription, NewDescription: p.NewDescription}
	default:
		return Envelope{}, fmt.Errorf("unknown product event type %q on log entry %d", entry.EventType, entry.ID)
	}

	return Envelope{Event: ev, Sequence: entry.Sequence, OccurredAt: entry.OccurredAt}, nil
}

package product

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Lifecycle is the product's read-model state. Retirement is a state, not
// a removal: views are never deleted.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "ACTIVE"
	LifecycleRetired Lifecycle = "RETIRED"
)

// ViewEvent is one applied projection on the view's history.
type ViewEvent struct {
	Kind       Kind            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Sequence   int64           `json:"sequence"`
	Payload    json.RawMessage `json:"payload"`
}

// CatalogRef links a view to a catalog it appears in.
type CatalogRef struct {
	CatalogID string `json:"catalogId"`
	Name      string `json:"name"`
}

// View is the denormalized product read model. Version is the sequence of
// the last applied event and drives the staleness guard.
type View struct {
	ID          ProductID
	Version     int64
	SkuID       SkuID
	Name        string
	Description string
	Status      Lifecycle
	Catalogs    []CatalogRef
	Events      []ViewEvent
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewView validates the field invariants every persisted view must hold.
func NewView(v View) (*View, error) {
	if v.ID == (ProductID{}) {
		return nil, errors.New("view requires a product id")
	}
	if v.Version <= 0 {
		return nil, errors.New("view requires a positive version")
	}
	if strings.TrimSpace(v.Name) == "" {
		return nil, errors.New("view requires a non-blank name")
	}
	if v.Status != LifecycleActive && v.Status != LifecycleRetired {
		return nil, errors.New("view requires a known lifecycle status")
	}
	return &v, nil
}

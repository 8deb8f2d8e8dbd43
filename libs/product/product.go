package product

import (
	"errors"
	"strings"

	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
)

var (
	ErrBlankName = errors.New("product name must not be blank")
	ErrRetired   = errors.New("product is retired")
	ErrNotActive = errors.New("product is not active")
)

// Product is the write-side aggregate. Version counts applied events and
// becomes the sequence of the next emitted envelope.
type Product struct {
	ID          ProductID
	SkuID       SkuID
	Name        string
	Description string
	Status      Lifecycle
	Version     int64
}

// Register creates a new active product and emits its first event.
func Register(sku SkuID, name, description string) (*Product, Envelope, error) {
	if strings.TrimSpace(name) == "" {
		return nil, Envelope{}, ErrBlankName
	}
	p := &Product{
		ID:          NewProductID(),
		SkuID:       sku,
		Name:        name,
		Description: description,
		Status:      LifecycleActive,
		Version:     1,
	}
	env := cqrs.Wrap[Event](Registered{
		ID:          p.ID,
		SkuID:       p.SkuID,
		Name:        p.Name,
		Description: p.Description,
	}, p.Version)
	return p, env, nil
}

// UpdateName renames an active product.
func (p *Product) UpdateName(name string) (Envelope, error) {
	if strings.TrimSpace(name) == "" {
		return Envelope{}, ErrBlankName
	}
	if p.Status != LifecycleActive {
		return Envelope{}, ErrNotActive
	}
	old := p.Name
	p.Name = name
	p.Version++
	return cqrs.Wrap[Event](NameUpdated{ID: p.ID, OldName: old, NewName: name}, p.Version), nil
}

// UpdateDescription changes the description of an active product. Blank
// descriptions are allowed.
func (p *Product) UpdateDescription(description string) (Envelope, error) {
	if p.Status != LifecycleActive {
		return Envelope{}, ErrNotActive
	}
	old := p.Description
	p.Description = description
	p.Version++
	return cqrs.Wrap[Event](DescriptionUpdated{ID: p.ID, OldDescription: old, NewDescription: description}, p.Version), nil
}

// Retire ends the product's lifecycle. Retiring twice is rejected.
func (p *Product) Retire() (Envelope, error) {
	if p.Status == LifecycleRetired {
		return Envelope{}, ErrRetired
	}
	p.Status = LifecycleRetired
	p.Version++
	return cqrs.Wrap[Event](Retired{ID: p.ID}, p.Version), nil
}

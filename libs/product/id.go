package product

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// ProductID identifies one product aggregate.
type ProductID uuid.UUID

func NewProductID() ProductID {
	return ProductID(uuid.New())
}

func ParseProductID(s string) (ProductID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ProductID{}, fmt.Errorf("invalid product id %q: %w", s, err)
	}
	return ProductID(u), nil
}

func (id ProductID) UUID() uuid.UUID { return uuid.UUID(id) }

func (id ProductID) String() string { return uuid.UUID(id).String() }

var skuPattern = regexp.MustCompile(`^[A-Z]{3}-[0-9]{5}$`)

// SkuID is the human-facing stock keeping unit, three uppercase letters,
// a dash and five digits.
type SkuID string

func ParseSkuID(s string) (SkuID, error) {
	if !skuPattern.MatchString(s) {
		return "", fmt.Errorf("invalid sku %q: expected three letters, dash, five digits", s)
	}
	return SkuID(s), nil
}

func (s SkuID) String() string { return string(s) }

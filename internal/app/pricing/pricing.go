// Package pricing computes checkout amounts: per-unit prices under
// customization, order subtotals, shipping fees and final totals. All
// amounts are IDR. Everything here is pure; persistence and discount
// lookup live in the service layer.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milkbites/milkbites-backend/internal/app/model"
)

var (
	// ErrCustomizationRequired is returned when a product demands a
	// selection and none was given.
	ErrCustomizationRequired = errors.New("this product requires customization")
	// ErrUnknownVariant is returned when a selection names a variant
	// the product does not offer.
	ErrUnknownVariant = errors.New("unknown variant")
)

// SelectionCountError reports a group whose selection does not match
// the exact required count.
type SelectionCountError struct {
	Group         string
	Label         string
	RequiredCount int
	Selected      int
}

func (e *SelectionCountError) Error() string {
	label := e.Label
	if label == "" {
		label = e.Group
	}
	return fmt.Sprintf("please select exactly %d %s (got %d)", e.RequiredCount, label, e.Selected)
}

// Line is one priced order line.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Subtotal sums unit price times quantity across lines.
func Subtotal(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// ShippingFee returns the flat fee for the delivery type. Pickup orders
// ship for the configured pickup fee, zero by default.
func ShippingFee(deliveryType model.DeliveryType, settings model.ShippingSettings) float64 {
	if deliveryType == model.DeliveryTypePickup {
		return settings.PickupFee
	}
	return settings.DeliveryFee
}

// Total combines subtotal, shipping fee and discount amount.
func Total(subtotal, shippingFee, discountAmount float64) float64 {
	return subtotal + shippingFee - discountAmount
}

// ValidateSelection checks a customization against the product's schema.
// Every group must be selected with exactly its required count, and every
// selected name must exist in the group. A product whose schema is
// optional accepts an empty selection; once the customer selects, the
// exact-count rule applies.
func ValidateSelection(product *model.Product, customization *model.Customization) error {
	groups := product.CustomizationOptions.Groups()

	if len(groups) == 0 {
		// Nothing to customize; any selection is ignored upstream.
		return nil
	}

	if customization.IsZero() {
		if product.RequiresCustomization {
			return ErrCustomizationRequired
		}
		return nil
	}

	selections := customization.Selections()

	// Deterministic error order for multi-group schemas.
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := groups[name]
		if group.RequiredCount == 0 {
			continue
		}

		selected := selections[name]
		if len(selected) != group.RequiredCount {
			return &SelectionCountError{
				Group:         name,
				Label:         group.Label,
				RequiredCount: group.RequiredCount,
				Selected:      len(selected),
			}
		}

		for _, variantName := range selected {
			if _, ok := group.FindVariant(variantName); !ok {
				return fmt.Errorf("%w: %q is not offered for %s", ErrUnknownVariant, variantName, name)
			}
		}
	}

	return nil
}

// UnitPrice computes base price plus the upcharge of every selected
// variant. The selection is assumed validated.
func UnitPrice(product *model.Product, customization *model.Customization) float64 {
	price := product.Price

	groups := product.CustomizationOptions.Groups()
	if len(groups) == 0 || customization.IsZero() {
		return price
	}

	for name, selected := range customization.Selections() {
		group, ok := groups[name]
		if !ok {
			continue
		}
		for _, variantName := range selected {
			if variant, ok := group.FindVariant(variantName); ok {
				price += variant.AdditionalPrice
			}
		}
	}

	return price
}

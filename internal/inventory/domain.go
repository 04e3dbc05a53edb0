// Package inventory tracks stock lots in grams with derived ounce, kilogram
// and cost figures.
package inventory

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizops/internal/platform/db"
)

// GramsPerOunce converts between grams and avoirdupois ounces.
var GramsPerOunce = decimal.RequireFromString("28.3495")

var gramsPerKilogram = decimal.NewFromInt(1000)

// Item is a stock lot. Grams are authoritative; ounces, kilograms and total
// cost are derived from them.
type Item struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	QuantityG         decimal.Decimal `json:"quantityG"`
	QuantityOz        decimal.Decimal `json:"quantityOz"`
	QuantityKg        decimal.Decimal `json:"quantityKg"`
	PurchaseDate      db.Date         `json:"purchaseDate"`
	CostPerOz         decimal.Decimal `json:"costPerOz"`
	TotalCost         decimal.Decimal `json:"totalCost"`
	ReorderThresholdG decimal.Decimal `json:"reorderThresholdG"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Input creates an item. A zero PurchaseDate means today.
type Input struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"max=2000"`
	QuantityG         decimal.Decimal `json:"quantityG" validate:"gte=0"`
	PurchaseDate      db.Date         `json:"purchaseDate"`
	CostPerOz         decimal.Decimal `json:"costPerOz" validate:"gte=0"`
	ReorderThresholdG decimal.Decimal `json:"reorderThresholdG" validate:"gte=0"`
}

// Update changes the fields that are set. Derived quantities and cost are
// recomputed whenever grams or cost per ounce change.
type Update struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description" validate:"omitempty,max=2000"`
	QuantityG         *decimal.Decimal `json:"quantityG" validate:"omitempty,gte=0"`
	PurchaseDate      *db.Date         `json:"purchaseDate"`
	CostPerOz         *decimal.Decimal `json:"costPerOz" validate:"omitempty,gte=0"`
	ReorderThresholdG *decimal.Decimal `json:"reorderThresholdG" validate:"omitempty,gte=0"`
}

// NewItem builds an item from input with derived fields filled in.
func NewItem(in Input) Item {
	item := Item{
		Name:              in.Name,
		Description:       in.Description,
		QuantityG:         in.QuantityG,
		PurchaseDate:      in.PurchaseDate,
		CostPerOz:         in.CostPerOz,
		ReorderThresholdG: in.ReorderThresholdG,
	}
	if item.PurchaseDate.IsZero() {
		item.PurchaseDate = db.Today()
	}
	return item.Recalculate()
}

// Apply returns item with upd applied and derived fields recomputed.
func (upd Update) Apply(item Item) Item {
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.Description != nil {
		item.Description = *upd.Description
	}
	if upd.QuantityG != nil {
		item.QuantityG = *upd.QuantityG
	}
	if upd.PurchaseDate != nil && !upd.PurchaseDate.IsZero() {
		item.PurchaseDate = *upd.PurchaseDate
	}
	if upd.CostPerOz != nil {
		item.CostPerOz = *upd.CostPerOz
	}
	if upd.ReorderThresholdG != nil {
		item.ReorderThresholdG = *upd.ReorderThresholdG
	}
	return item.Recalculate()
}

// Quantities converts grams into ounces and kilograms.
func Quantities(grams decimal.Decimal) (oz, kg decimal.Decimal) {
	return grams.Div(GramsPerOunce), grams.Div(gramsPerKilogram)
}

// Recalculate derives ounces, kilograms and total cost from grams.
func (i Item) Recalculate() Item {
	i.QuantityOz, i.QuantityKg = Quantities(i.QuantityG)
	i.TotalCost = i.QuantityOz.Mul(i.CostPerOz)
	return i
}

// ApplySale removes sold grams from the item, flooring at zero.
func (i Item) ApplySale(soldGrams decimal.Decimal) Item {
	i.QuantityG = decimal.Max(decimal.Zero, i.QuantityG.Sub(soldGrams))
	return i.Recalculate()
}

// BelowReorder reports whether stock has fallen to the reorder threshold.
func (i Item) BelowReorder() bool {
	return i.ReorderThresholdG.IsPositive() && i.QuantityG.LessThanOrEqual(i.ReorderThresholdG)
}

// MarshalJSON adds the derived belowReorder flag.
func (i Item) MarshalJSON() ([]byte, error) {
	type item Item
	return json.Marshal(struct {
		item
		BelowReorder bool `json:"belowReorder"`
	}{item: item(i), BelowReorder: i.BelowReorder()})
}

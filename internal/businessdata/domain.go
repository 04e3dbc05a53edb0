// Package businessdata stores the per-tenant pricing baseline used by the
// planning screens.
package businessdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessData is one saved pricing baseline. The latest row by creation
// time is the current one.
type BusinessData struct {
	ID                   string          `json:"id"`
	WholesalePricePerOz  decimal.Decimal `json:"wholesalePricePerOz"`
	TargetProfitPerMonth decimal.Decimal `json:"targetProfitPerMonth"`
	OperatingExpenses    decimal.Decimal `json:"operatingExpenses"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// Input creates a baseline.
type Input struct {
	WholesalePricePerOz  decimal.Decimal `json:"wholesalePricePerOz" validate:"gte=0"`
	TargetProfitPerMonth decimal.Decimal `json:"targetProfitPerMonth" validate:"gte=0"`
	OperatingExpenses    decimal.Decimal `json:"operatingExpenses" validate:"gte=0"`
}

// Update changes the fields that are set.
type Update struct {
	WholesalePricePerOz  *decimal.Decimal `json:"wholesalePricePerOz" validate:"omitempty,gte=0"`
	TargetProfitPerMonth *decimal.Decimal `json:"targetProfitPerMonth" validate:"omitempty,gte=0"`
	OperatingExpenses    *decimal.Decimal `json:"operatingExpenses" validate:"omitempty,gte=0"`
}

// Defaults seeds a tenant that has never saved a baseline.
func Defaults() Input {
	return Input{
		WholesalePricePerOz:  decimal.NewFromInt(100),
		TargetProfitPerMonth: decimal.NewFromInt(2000),
		OperatingExpenses:    decimal.NewFromInt(500),
	}
}

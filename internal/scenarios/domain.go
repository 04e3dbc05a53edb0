// Package scenarios manages pricing scenarios and the salespeople attached
// to them.
package scenarios

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scenario is a what-if pricing plan.
type Scenario struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	WholesalePrice decimal.Decimal `json:"wholesalePrice"`
	RetailPrice    decimal.Decimal `json:"retailPrice"`
	Quantity       decimal.Decimal `json:"quantity"`
	TimePeriod     string          `json:"timePeriod"`
	Expenses       decimal.Decimal `json:"expenses"`
	Salespeople    []Salesperson   `json:"salespeople"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Salesperson belongs to exactly one scenario of the same tenant.
type Salesperson struct {
	ID             string          `json:"id"`
	ScenarioID     string          `json:"scenarioId"`
	Name           string          `json:"name"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	SalesQuantity  decimal.Decimal `json:"salesQuantity"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SalespersonInput describes one salesperson of a create or replace.
type SalespersonInput struct {
	Name           string          `json:"name" validate:"required,max=200"`
	CommissionRate decimal.Decimal `json:"commissionRate" validate:"gte=0"`
	SalesQuantity  decimal.Decimal `json:"salesQuantity" validate:"gte=0"`
}

// Input creates a scenario together with its salespeople.
type Input struct {
	Name           string             `json:"name" validate:"required,max=200"`
	Description    string             `json:"description" validate:"max=2000"`
	WholesalePrice decimal.Decimal    `json:"wholesalePrice" validate:"gte=0"`
	RetailPrice    decimal.Decimal    `json:"retailPrice" validate:"gte=0"`
	Quantity       decimal.Decimal    `json:"quantity" validate:"gte=0"`
	TimePeriod     string             `json:"timePeriod" validate:"omitempty,max=32"`
	Expenses       decimal.Decimal    `json:"expenses" validate:"gte=0"`
	Salespeople    []SalespersonInput `json:"salespeople" validate:"dive"`
}

// Update changes the fields that are set. A non-nil Salespeople replaces the
// whole set, so an empty slice removes every salesperson.
type Update struct {
	Name           *string             `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string             `json:"description" validate:"omitempty,max=2000"`
	WholesalePrice *decimal.Decimal    `json:"wholesalePrice" validate:"omitempty,gte=0"`
	RetailPrice    *decimal.Decimal    `json:"retailPrice" validate:"omitempty,gte=0"`
	Quantity       *decimal.Decimal    `json:"quantity" validate:"omitempty,gte=0"`
	TimePeriod     *string             `json:"timePeriod" validate:"omitempty,min=1,max=32"`
	Expenses       *decimal.Decimal    `json:"expenses" validate:"omitempty,gte=0"`
	Salespeople    *[]SalespersonInput `json:"salespeople" validate:"omitempty,dive"`
}

const defaultTimePeriod = "monthly"

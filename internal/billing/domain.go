// Package billing records sales and other money movements, applies their
// inventory and customer-credit side effects, and keeps the chart of
// accounts.
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizops/internal/inventory"
)

// TypeSale marks transactions that draw down inventory.
const TypeSale = "sale"

// PaymentMethodCredit marks sales that are added to the customer's balance.
const PaymentMethodCredit = "credit"

// gramsPerOunceRegister is the rounded factor the cash register has always
// priced with. Stock valuation uses inventory.GramsPerOunce.
var gramsPerOunceRegister = decimal.RequireFromString("28.35")

// Transaction is one recorded money movement. Inventory and customer names
// are denormalised so the record survives deletion of either.
type Transaction struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Type          string          `json:"type"`
	InventoryID   *string         `json:"inventoryId"`
	InventoryName string          `json:"inventoryName,omitempty"`
	QuantityGrams decimal.Decimal `json:"quantityGrams"`
	PricePerGram  decimal.Decimal `json:"pricePerGram"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	PaymentMethod string          `json:"paymentMethod"`
	CustomerID    *string         `json:"customerId"`
	CustomerName  string          `json:"customerName,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TransactionInput creates a transaction. A zero Date means now.
type TransactionInput struct {
	Date          time.Time       `json:"date"`
	Type          string          `json:"type" validate:"required,max=32"`
	InventoryID   string          `json:"inventoryId" validate:"omitempty,uuid"`
	InventoryName string          `json:"inventoryName" validate:"max=200"`
	QuantityGrams decimal.Decimal `json:"quantityGrams" validate:"gte=0"`
	PricePerGram  decimal.Decimal `json:"pricePerGram" validate:"gte=0"`
	TotalPrice    decimal.Decimal `json:"totalPrice" validate:"gte=0"`
	Cost          decimal.Decimal `json:"cost" validate:"gte=0"`
	Profit        decimal.Decimal `json:"profit"`
	PaymentMethod string          `json:"paymentMethod" validate:"required,max=32"`
	CustomerID    string          `json:"customerId" validate:"omitempty,uuid"`
	CustomerName  string          `json:"customerName" validate:"max=200"`
	Notes         string          `json:"notes" validate:"max=2000"`
}

// DrawsInventory reports whether the transaction reduces stock.
func (in TransactionInput) DrawsInventory() bool {
	return in.Type == TypeSale && in.InventoryID != ""
}

// ExtendsCredit reports whether the transaction raises a customer balance.
func (in TransactionInput) ExtendsCredit() bool {
	return in.Type == TypeSale && in.CustomerID != "" && in.PaymentMethod == PaymentMethodCredit
}

// Account is an entry in the tenant's chart of accounts.
type Account struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// AccountInput creates an account.
type AccountInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Type        string          `json:"type" validate:"required,max=50"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description" validate:"max=2000"`
}

// AccountUpdate changes the fields that are set.
type AccountUpdate struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Type        *string          `json:"type" validate:"omitempty,min=1,max=50"`
	Balance     *decimal.Decimal `json:"balance"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
}

// QuoteInput prices a prospective sale. CustomPrice overrides the retail
// total; InventoryID supplies the cost basis.
type QuoteInput struct {
	QuantityGrams      decimal.Decimal  `json:"quantityGrams" validate:"gt=0"`
	RetailPricePerGram decimal.Decimal  `json:"retailPricePerGram" validate:"gte=0"`
	CustomPrice        *decimal.Decimal `json:"customPrice" validate:"omitempty,gte=0"`
	InventoryID        string           `json:"inventoryId" validate:"omitempty,uuid"`
}

// Quote is the priced sale shown at the register.
type Quote struct {
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	PricePerGram decimal.Decimal `json:"pricePerGram"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
}

// QuoteSale computes register figures for quantity grams. item may be nil.
// quantity must be positive.
func QuoteSale(in QuoteInput, item *inventory.Item) Quote {
	total := in.RetailPricePerGram.Mul(in.QuantityGrams)
	if in.CustomPrice != nil {
		total = *in.CustomPrice
	}
	costPerGram := decimal.Zero
	if item != nil {
		costPerGram = item.CostPerOz.Div(gramsPerOunceRegister)
	}
	cost := costPerGram.Mul(in.QuantityGrams)
	return Quote{
		TotalPrice:   total,
		PricePerGram: total.Div(in.QuantityGrams),
		Cost:         cost,
		Profit:       total.Sub(cost),
	}
}

// Package customers keeps customer accounts receivable: the amount each
// customer owes and the payments recorded against it.
package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizops/internal/platform/db"
)

// Status summarises a customer's balance.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPartial Status = "partial"
	StatusUnpaid  Status = "unpaid"
)

// Customer owes AmountOwed. AmountOwed and Status change only through
// payments and credit sales.
type Customer struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone,omitempty"`
	Email      string          `json:"email,omitempty"`
	Address    string          `json:"address,omitempty"`
	AmountOwed decimal.Decimal `json:"amountOwed"`
	DueDate    *db.Date        `json:"dueDate,omitempty"`
	Status     Status          `json:"status"`
	Notes      string          `json:"notes,omitempty"`
	Payments   []Payment       `json:"payments"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Payment reduces a customer's balance.
type Payment struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Date       db.Date         `json:"date"`
	Method     string          `json:"method"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Input creates a customer. AmountOwed is the opening balance.
type Input struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Phone      string          `json:"phone" validate:"max=50"`
	Email      string          `json:"email" validate:"omitempty,email"`
	Address    string          `json:"address" validate:"max=500"`
	AmountOwed decimal.Decimal `json:"amountOwed" validate:"gte=0"`
	DueDate    *db.Date        `json:"dueDate"`
	Notes      string          `json:"notes" validate:"max=2000"`
}

// Update changes contact details. Balance fields are deliberately absent.
type Update struct {
	Name    *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Phone   *string  `json:"phone" validate:"omitempty,max=50"`
	Email   *string  `json:"email" validate:"omitempty,email"`
	Address *string  `json:"address" validate:"omitempty,max=500"`
	DueDate *db.Date `json:"dueDate"`
	Notes   *string  `json:"notes" validate:"omitempty,max=2000"`
}

// PaymentInput records a payment. A zero Date means today.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	Date   db.Date         `json:"date"`
	Method string          `json:"method" validate:"required,max=32"`
	Notes  string          `json:"notes" validate:"max=2000"`
}

// OpeningStatus derives the status of a new customer from its opening
// balance.
func OpeningStatus(owed decimal.Decimal) Status {
	if owed.IsPositive() {
		return StatusUnpaid
	}
	return StatusPaid
}

// ApplyPayment returns the balance and status after paying amount.
func ApplyPayment(owed, amount decimal.Decimal) (decimal.Decimal, Status) {
	next := decimal.Max(decimal.Zero, owed.Sub(amount))
	switch {
	case !next.IsPositive():
		return next, StatusPaid
	case amount.IsPositive():
		return next, StatusPartial
	default:
		return next, StatusUnpaid
	}
}

// ApplyCredit returns the balance and status after a credit sale of total.
func ApplyCredit(owed, total decimal.Decimal) (decimal.Decimal, Status) {
	return owed.Add(total), StatusUnpaid
}

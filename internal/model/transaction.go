package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferKind is either an expense or an income.
type TransferKind string

const (
	Expense TransferKind = "expense"
	Income  TransferKind = "income"
)

// ParseTransferKind accepts "expense"/"expenses" and "income"/"incomes".
func ParseTransferKind(s string) (TransferKind, error) {
	switch s {
	case "expense", "expenses":
		return Expense, nil
	case "income", "incomes":
		return Income, nil
	}
	return "", fmt.Errorf("unknown transfer kind %q", s)
}

// Title returns the capitalized kind, as used in reports.
func (k TransferKind) Title() string {
	switch k {
	case Expense:
		return "Expense"
	case Income:
		return "Income"
	}
	return string(k)
}

// Transfer is one expense or income row as returned by the backend.
type Transfer struct {
	ID          int64           `json:"id"`
	Kind        TransferKind    `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    *int64          `json:"category,omitempty"`
	Created     time.Time       `json:"created"`
}

// TransferPayload is the request body for creating or updating a transfer.
type TransferPayload struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    *int64          `json:"category,omitempty"`
}

// MarshalJSON sends the amount as a JSON number, e.g. {"amount": 50}.
func (p TransferPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount      json.Number `json:"amount"`
		Description string      `json:"description"`
		Category    *int64      `json:"category,omitempty"`
	}{
		Amount:      json.Number(p.Amount.String()),
		Description: p.Description,
		Category:    p.Category,
	})
}

// Operation is the mutation a TransferDraft describes.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// TransferDraft is a parsed, not yet submitted, transfer mutation.
type TransferDraft struct {
	Kind        TransferKind
	Operation   Operation
	ID          int64
	Amount      decimal.Decimal
	Description string
}

// Payload builds the request body for create and update drafts.
func (d TransferDraft) Payload() TransferPayload {
	return TransferPayload{Amount: d.Amount, Description: d.Description}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketValid   TicketStatus = "valid"
	TicketUsed    TicketStatus = "used"
	TicketExpired TicketStatus = "expired"
)

// IssuedTicket is what the issuer hands back for a freshly paid invoice:
// an opaque signed reference plus the URL that gets rendered as the
// scannable code. No invoice or personal data is embedded in the payload.
type IssuedTicket struct {
	Reference     string    `json:"reference"`
	URL           string    `json:"url"`
	InvoiceID     string    `json:"invoice_id"`
	TransactionID string    `json:"transaction_id"`
	IssuedAt      time.Time `json:"issued_at"`
}

// TicketInfo is recomputed from the current invoice/registration state on
// every presentation; Status is never trusted from the token itself.
type TicketInfo struct {
	Reference     string          `json:"reference"`
	InvoiceID     string          `json:"invoice_id"`
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	EventName     string          `json:"event_name"`
	Amount        decimal.Decimal `json:"amount"`
	Status        TicketStatus    `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`
	CheckedInAt   *time.Time      `json:"checked_in_at,omitempty"`
}

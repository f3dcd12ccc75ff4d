package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceFailed    InvoiceStatus = "failed"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// ReceiptData is the slice of a verified receipt that gets stored on the
// invoice when the payment commits.
type ReceiptData struct {
	SenderName      string          `json:"sender_name"`
	ConfirmedAmount decimal.Decimal `json:"confirmed_amount"`
	Date            string          `json:"date"`
	Receiver        string          `json:"receiver,omitempty"`
}

type Invoice struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Status InvoiceStatus   `json:"status"`

	// EventID may be empty for legacy records that only carry EventName.
	EventID   string    `json:"event_id,omitempty"`
	EventName string    `json:"event_name"`
	Place     string    `json:"place,omitempty"`
	EventTime time.Time `json:"event_time,omitempty"`

	// TransactionID is the idempotency key. Set exactly once, at the moment
	// of successful reconciliation, immutable afterwards.
	TransactionID string       `json:"transaction_id,omitempty"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`
	ReceiptData   *ReceiptData `json:"receipt_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptValid   ReceiptStatus = "valid"
	ReceiptInvalid ReceiptStatus = "invalid"
)

// Receipt is the normalized result of confirming a claimed transfer against
// its issuing institution. It is produced once per verification attempt and
// never persisted directly; its fields are copied onto the matched invoice
// at commit time.
type Receipt struct {
	TransactionID string          `json:"transaction_id"`
	SenderName    string          `json:"sender_name"`
	ReceiverName  string          `json:"receiver_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"` // raw provider text, layout not guaranteed
	Timestamp     time.Time       `json:"timestamp,omitempty"`
	Status        ReceiptStatus   `json:"status"`
}

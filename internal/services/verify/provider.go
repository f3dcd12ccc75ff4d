package verify

import (
	"context"
	"strings"
	"time"

	"ticket-engine/models"
)

// Method identifies a payment rail.
type Method string

const (
	MethodTelebirr Method = "telebirr"
	MethodCBE      Method = "cbe"
	MethodBOA      Method = "boa"
)

// RetryPolicy is provider-local: each rail declares how often its transient
// failures are re-attempted and with what fixed delay between attempts.
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
}

// Provider confirms a claimed transfer against one institution's public
// receipt-lookup surface and normalizes it into a Receipt.
type Provider interface {
	// Method returns the payment rail this provider targets.
	Method() Method

	// Retry returns the provider's retry policy for transient failures.
	Retry() RetryPolicy

	// Verify fetches and parses the institution's record for transactionID.
	// Terminal failures (no such transaction, unparsable content) are
	// reported via status.ErrReceiptNotFound / status.ErrInvalidReceipt;
	// transient ones via status.ErrProviderUnavailable.
	Verify(ctx context.Context, transactionID string) (*models.Receipt, error)
}

// InferMethod routes a transaction id to a rail by its literal prefix:
// CBE references start with "FT", Abyssinia ones with "BOA" or "ABY",
// everything else is treated as a telebirr id. Callers pre-route with the
// same rule, so this must stay a pure function.
func InferMethod(transactionID string) Method {
	id := strings.ToUpper(strings.TrimSpace(transactionID))

	switch {
	case strings.HasPrefix(id, "FT"):
		return MethodCBE
	case strings.HasPrefix(id, "BOA"), strings.HasPrefix(id, "ABY"):
		return MethodBOA
	default:
		return MethodTelebirr
	}
}

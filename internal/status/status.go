package status

import "errors"

// Verification errors. ErrProviderUnavailable marks transient transport
// failures that the dispatcher may retry; the rest are terminal.
var (
	ErrProviderUnavailable = errors.New("verify: provider unavailable")
	ErrReceiptNotFound     = errors.New("verify: receipt not found")
	ErrInvalidReceipt      = errors.New("verify: receipt invalid")
	ErrUnknownMethod       = errors.New("verify: unknown payment method")
)

// Reconciliation errors.
var (
	ErrNoMatchingInvoice    = errors.New("reconcile: no matching pending invoice")
	ErrTransactionConsumed  = errors.New("reconcile: transaction already used by another payment")
	ErrCommitConflict       = errors.New("reconcile: payment commit conflict")
	ErrInvoiceNotFound      = errors.New("store: invoice not found")
	ErrRegistrationNotFound = errors.New("store: registration not found")
)

// Ticket errors. ErrSignatureMismatch indicates tampering and must stay
// distinguishable from ordinary not-found conditions.
var (
	ErrSignatureMismatch = errors.New("ticket: signature mismatch")
	ErrMalformedTicket   = errors.New("ticket: malformed reference")
	ErrTicketNotFound    = errors.New("ticket: no completed payment for reference")
	ErrTicketUsed        = errors.New("ticket: already used")
	ErrTicketExpired     = errors.New("ticket: expired")
	ErrCheckInConflict   = errors.New("ticket: concurrent check-in")
)

// Transient reports whether err is worth retrying at the provider level.
func Transient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

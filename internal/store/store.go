// Package store exposes the invoice and registration persistence the engine
// reconciles against. The engine never holds these records locked across an
// external network call; conflicts are detected at write time instead.
package store

import (
	"context"
	"time"

	"ticket-engine/models"
)

type InvoiceStore interface {
	// FindPendingByUser returns the user's pending invoices, most recently
	// created first.
	FindPendingByUser(ctx context.Context, userID string) ([]*models.Invoice, error)

	// FindByTransaction returns the invoice holding transactionID, or
	// status.ErrInvoiceNotFound.
	FindByTransaction(ctx context.Context, transactionID string) (*models.Invoice, error)

	// FindPaid returns the paid invoice identified by (invoiceID,
	// transactionID), or status.ErrInvoiceNotFound.
	FindPaid(ctx context.Context, invoiceID, transactionID string) (*models.Invoice, error)

	// CommitPayment atomically transitions a pending invoice to paid and
	// stamps the transaction id and receipt data onto it. A lost race
	// (invoice no longer pending, or transaction id already held by another
	// invoice) surfaces as status.ErrCommitConflict.
	CommitPayment(ctx context.Context, invoiceID, transactionID string, data *models.ReceiptData, paidAt time.Time) (*models.Invoice, error)
}

type RegistrationStore interface {
	// Find returns the registration for (user, event), or
	// status.ErrRegistrationNotFound.
	Find(ctx context.Context, userID, eventID string) (*models.EventRegistration, error)

	// FindByEventName resolves an event by name first; needed for legacy
	// invoices that only carry an event name string.
	FindByEventName(ctx context.Context, userID, eventName string) (*models.EventRegistration, error)

	// Confirm advances a registration to confirmed. Idempotent.
	Confirm(ctx context.Context, registrationID string) error

	// CheckIn flips checked_in false->true as a single conditional update;
	// a concurrent winner surfaces as status.ErrCheckInConflict.
	CheckIn(ctx context.Context, registrationID string, at time.Time) error
}

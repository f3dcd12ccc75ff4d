// Package reconcile matches confirmed receipts to pending invoices and
// commits the paid state transition. Verification is assumed to have
// happened fully before any write here is attempted.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticket-engine/internal/services/ticket"
	"ticket-engine/internal/status"
	"ticket-engine/internal/store"
	"ticket-engine/models"
	"ticket-engine/monitoring"

	"github.com/shopspring/decimal"
)

// Notifier delivers an issued ticket to the buyer. Failures are recorded as
// warnings, never propagated.
type Notifier interface {
	TicketIssued(ctx context.Context, userID string, invoice *models.Invoice, t *models.IssuedTicket, qrPNG []byte) error
}

// Result separates the primary reconciliation outcome from secondary-effect
// warnings: a committed payment with a failed notification is still a
// committed payment.
type Result struct {
	Invoice *models.Invoice      `json:"invoice"`
	Ticket  *models.IssuedTicket `json:"ticket,omitempty"`

	// AlreadyPaid marks a duplicate submission by the same user; the
	// existing ticket was re-issued instead of creating a new payment.
	AlreadyPaid bool `json:"already_paid"`

	Warnings []string `json:"warnings,omitempty"`
}

type Engine struct {
	invoices      store.InvoiceStore
	registrations store.RegistrationStore
	tickets       *ticket.Service
	notifier      Notifier
}

func NewEngine(invoices store.InvoiceStore, registrations store.RegistrationStore, tickets *ticket.Service, notifier Notifier) *Engine {
	return &Engine{
		invoices:      invoices,
		registrations: registrations,
		tickets:       tickets,
		notifier:      notifier,
	}
}

// Reconcile finds the pending invoice a confirmed receipt pays for and
// commits the transition. The transaction id is the idempotency key:
// resubmitting a receipt never creates a second payment.
func (e *Engine) Reconcile(ctx context.Context, receipt *models.Receipt, userID string, eventHint string) (*Result, error) {
	if receipt == nil || receipt.Status != models.ReceiptValid {
		return nil, status.ErrInvalidReceipt
	}
	if userID == "" {
		return nil, fmt.Errorf("reconcile: missing user: %w", status.ErrNoMatchingInvoice)
	}

	// 1. Idempotency: has this transaction id already funded an invoice?
	existing, err := e.invoices.FindByTransaction(ctx, receipt.TransactionID)
	switch {
	case err == nil:
		return e.resolveDuplicate(ctx, existing, userID)
	case errors.Is(err, status.ErrInvoiceNotFound):
		// fresh transaction id
	default:
		return nil, fmt.Errorf("reconcile: idempotency lookup: %w", err)
	}

	// 2. Candidate selection among the user's pending invoices.
	pending, err := e.invoices.FindPendingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: pending lookup: %w", err)
	}

	candidate := pickCandidate(pending, receipt.Amount, eventHint)
	if candidate == nil {
		monitoring.ObserveReconciliation("no_match")
		return nil, fmt.Errorf("reconcile: searched amount %s: %w", receipt.Amount, status.ErrNoMatchingInvoice)
	}

	// 3. Commit. The unique constraint on transaction_id resolves the race
	// where two concurrent reconciliations target the same id: the losing
	// writer sees a conflict and demotes it to duplicate handling.
	result, err := e.settle(ctx, candidate, receipt, userID)
	if err == nil || !errors.Is(err, status.ErrCommitConflict) {
		return result, err
	}

	// The conflict was not about the transaction id (no invoice holds it);
	// the candidate itself left the pending state under us, e.g. a
	// concurrent cancellation. Re-select once among the remaining pending
	// invoices before giving up.
	pending, err = e.invoices.FindPendingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: pending relookup: %w", err)
	}
	remaining := make([]*models.Invoice, 0, len(pending))
	for _, inv := range pending {
		if inv.ID != candidate.ID {
			remaining = append(remaining, inv)
		}
	}

	next := pickCandidate(remaining, receipt.Amount, eventHint)
	if next == nil {
		monitoring.ObserveReconciliation("no_match")
		return nil, fmt.Errorf("reconcile: searched amount %s: %w", receipt.Amount, status.ErrNoMatchingInvoice)
	}
	return e.settle(ctx, next, receipt, userID)
}

// settle commits the paid transition for candidate and runs the secondary
// effects. A commit conflict is re-read by transaction id and demoted to the
// duplicate/conflict taxonomy; when no invoice holds the id the returned
// error still wraps ErrCommitConflict so the caller can re-select.
func (e *Engine) settle(ctx context.Context, candidate *models.Invoice, receipt *models.Receipt, userID string) (*Result, error) {
	paidAt := receipt.Timestamp
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	invoice, err := e.invoices.CommitPayment(ctx, candidate.ID, receipt.TransactionID, &models.ReceiptData{
		SenderName:      receipt.SenderName,
		ConfirmedAmount: receipt.Amount,
		Date:            receipt.Date,
		Receiver:        receipt.ReceiverName,
	}, paidAt)
	if err != nil {
		if errors.Is(err, status.ErrCommitConflict) {
			return e.demoteConflict(ctx, receipt.TransactionID, userID)
		}
		monitoring.ObserveReconciliation("error")
		return nil, fmt.Errorf("reconcile: commit: %w", err)
	}

	monitoring.ObserveReconciliation("paid")
	result := &Result{Invoice: invoice}

	// Best-effort side effects, payment already committed.
	e.confirmRegistration(ctx, invoice, result)
	e.issueAndNotify(ctx, invoice, result)

	return result, nil
}

// resolveDuplicate handles a transaction id that already funded an invoice:
// same owner means an honest resubmission (re-issue the ticket, report
// success without a new payment); a different owner means the id is consumed.
func (e *Engine) resolveDuplicate(ctx context.Context, existing *models.Invoice, userID string) (*Result, error) {
	if existing.UserID != userID {
		monitoring.ObserveReconciliation("conflict")
		paidOn := ""
		if existing.PaidAt != nil {
			paidOn = existing.PaidAt.Format("2006-01-02 15:04")
		}
		return nil, fmt.Errorf("reconcile: paid on %s: %w", paidOn, status.ErrTransactionConsumed)
	}

	if existing.Status != models.InvoicePaid {
		// The id is stamped on a non-paid invoice only mid-commit; treat it
		// as consumed rather than guessing.
		monitoring.ObserveReconciliation("conflict")
		return nil, status.ErrTransactionConsumed
	}

	monitoring.ObserveReconciliation("duplicate")
	result := &Result{Invoice: existing, AlreadyPaid: true}
	e.issueAndNotify(ctx, existing, result)
	return result, nil
}

// demoteConflict re-reads the transaction id once after a lost commit race
// and converts the outcome into the duplicate/conflict taxonomy instead of a
// generic error.
func (e *Engine) demoteConflict(ctx context.Context, transactionID, userID string) (*Result, error) {
	existing, err := e.invoices.FindByTransaction(ctx, transactionID)
	if err != nil {
		monitoring.ObserveReconciliation("conflict")
		return nil, fmt.Errorf("reconcile: commit race: %w", status.ErrCommitConflict)
	}
	return e.resolveDuplicate(ctx, existing, userID)
}

func (e *Engine) confirmRegistration(ctx context.Context, invoice *models.Invoice, result *Result) {
	var reg *models.EventRegistration
	var err error

	switch {
	case invoice.EventID != "":
		reg, err = e.registrations.Find(ctx, invoice.UserID, invoice.EventID)
	case invoice.EventName != "":
		reg, err = e.registrations.FindByEventName(ctx, invoice.UserID, invoice.EventName)
	default:
		return
	}
	if err != nil {
		result.warnf("registration lookup failed: %v", err)
		return
	}

	if err := e.registrations.Confirm(ctx, reg.ID); err != nil {
		result.warnf("registration confirmation failed: %v", err)
	}
}

func (e *Engine) issueAndNotify(ctx context.Context, invoice *models.Invoice, result *Result) {
	t, err := e.tickets.Issue(invoice)
	if err != nil {
		result.warnf("ticket issuance failed: %v", err)
		return
	}
	result.Ticket = t

	if e.notifier == nil {
		return
	}

	png, err := e.tickets.QRImage(t)
	if err != nil {
		result.warnf("ticket rendering failed: %v", err)
		return
	}

	if err := e.notifier.TicketIssued(ctx, invoice.UserID, invoice, t, png); err != nil {
		result.warnf("ticket delivery failed: %v", err)
	}
}

func (r *Result) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn("reconcile: secondary effect failed", "invoice", r.Invoice.ID, "warning", msg)
	r.Warnings = append(r.Warnings, msg)
}

// pickCandidate selects the invoice a confirmed amount pays for: prefer a
// pending invoice matching the event hint with amount <= paid, newest first;
// otherwise any pending invoice with amount <= paid, newest first. The <=
// comparison tolerates buyers who transfer slightly more than invoiced; an
// invoice above the confirmed amount never matches.
func pickCandidate(pending []*models.Invoice, paid decimal.Decimal, eventHint string) *models.Invoice {
	if eventHint != "" {
		for _, inv := range pending {
			if inv.EventName == eventHint && inv.Amount.LessThanOrEqual(paid) {
				return inv
			}
		}
	}
	for _, inv := range pending {
		if inv.Amount.LessThanOrEqual(paid) {
			return inv
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"ticket-engine/internal/status"
	"ticket-engine/models"
)

// PBInvoices implements InvoiceStore on top of the app's invoices collection.
type PBInvoices struct {
	app core.App
}

func NewPBInvoices(app core.App) *PBInvoices {
	return &PBInvoices{app: app}
}

func (s *PBInvoices) FindPendingByUser(ctx context.Context, userID string) ([]*models.Invoice, error) {
	records, err := s.app.FindRecordsByFilter(
		"invoices",
		"user = {:user} && status = 'pending'",
		"-created",
		100,
		0,
		dbx.Params{"user": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("invoices.FindPendingByUser: %w", err)
	}

	invoices := make([]*models.Invoice, 0, len(records))
	for _, r := range records {
		invoices = append(invoices, invoiceFromRecord(r))
	}
	return invoices, nil
}

func (s *PBInvoices) FindByTransaction(ctx context.Context, transactionID string) (*models.Invoice, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"invoices",
		"transaction_id = {:tx} && transaction_id != ''",
		dbx.Params{"tx": transactionID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoices.FindByTransaction: %w", err)
	}
	return invoiceFromRecord(record), nil
}

func (s *PBInvoices) FindPaid(ctx context.Context, invoiceID, transactionID string) (*models.Invoice, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"invoices",
		"id = {:id} && transaction_id = {:tx} && status = 'paid'",
		dbx.Params{"id": invoiceID, "tx": transactionID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoices.FindPaid: %w", err)
	}
	return invoiceFromRecord(record), nil
}

// CommitPayment uses a conditional raw update rather than the record API:
// the WHERE status='pending' guard plus the unique index on transaction_id
// are the only correctness mechanisms for the concurrent-reconciliation
// race, and both have to fail distinguishably.
func (s *PBInvoices) CommitPayment(ctx context.Context, invoiceID, transactionID string, data *models.ReceiptData, paidAt time.Time) (*models.Invoice, error) {
	paid, err := types.ParseDateTime(paidAt)
	if err != nil {
		paid = types.NowDateTime()
	}

	q := s.app.DB().NewQuery(`
		UPDATE invoices
		SET status = 'paid',
		    transaction_id = {:tx},
		    paid_at = {:paidAt},
		    sender_name = {:sender},
		    confirmed_amount = {:confirmed},
		    receipt_date = {:receiptDate},
		    receiver = {:receiver},
		    updated = {:updated}
		WHERE id = {:id} AND status = 'pending'
	`).Bind(dbx.Params{
		"id":          invoiceID,
		"tx":          transactionID,
		"paidAt":      paid.String(),
		"sender":      data.SenderName,
		"confirmed":   data.ConfirmedAmount.String(),
		"receiptDate": data.Date,
		"receiver":    data.Receiver,
		"updated":     types.NowDateTime().String(),
	}).WithContext(ctx)

	res, err := q.Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return nil, status.ErrCommitConflict
		}
		return nil, fmt.Errorf("invoices.CommitPayment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("invoices.CommitPayment: rows affected: %w", err)
	}
	if affected == 0 {
		// The invoice left the pending state under us.
		return nil, status.ErrCommitConflict
	}

	record, err := s.app.FindRecordById("invoices", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices.CommitPayment: reload: %w", err)
	}
	return invoiceFromRecord(record), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func invoiceFromRecord(r *core.Record) *models.Invoice {
	amount, _ := decimal.NewFromString(r.GetString("amount"))

	inv := &models.Invoice{
		ID:            r.Id,
		UserID:        r.GetString("user"),
		Amount:        amount,
		Status:        models.InvoiceStatus(r.GetString("status")),
		EventID:       r.GetString("event"),
		EventName:     r.GetString("event_name"),
		Place:         r.GetString("place"),
		EventTime:     r.GetDateTime("event_time").Time(),
		TransactionID: r.GetString("transaction_id"),
		CreatedAt:     r.GetDateTime("created").Time(),
	}

	if paidAt := r.GetDateTime("paid_at"); !paidAt.IsZero() {
		t := paidAt.Time()
		inv.PaidAt = &t
	}

	if sender := r.GetString("sender_name"); sender != "" {
		confirmed, _ := decimal.NewFromString(r.GetString("confirmed_amount"))
		inv.ReceiptData = &models.ReceiptData{
			SenderName:      sender,
			ConfirmedAmount: confirmed,
			Date:            r.GetString("receipt_date"),
			Receiver:        r.GetString("receiver"),
		}
	}

	return inv
}

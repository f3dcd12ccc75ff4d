package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-engine/internal/services/ticket"
	"ticket-engine/internal/status"
	"ticket-engine/internal/store"
	"ticket-engine/models"
)

// memInvoices mimics the persistence contract: commit is conditional on the
// invoice still being pending, and a transaction id can fund only one
// invoice, ever.
type memInvoices struct {
	mu   sync.Mutex
	list []*models.Invoice // newest first
}

func (m *memInvoices) FindPendingByUser(_ context.Context, userID string) ([]*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range m.list {
		if inv.UserID == userID && inv.Status == models.InvoicePending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInvoices) FindByTransaction(_ context.Context, txID string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.list {
		if inv.TransactionID == txID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, status.ErrInvoiceNotFound
}

func (m *memInvoices) FindPaid(_ context.Context, invoiceID, txID string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.list {
		if inv.ID == invoiceID && inv.TransactionID == txID && inv.Status == models.InvoicePaid {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, status.ErrInvoiceNotFound
}

func (m *memInvoices) CommitPayment(_ context.Context, invoiceID, txID string, data *models.ReceiptData, paidAt time.Time) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inv := range m.list {
		if inv.TransactionID == txID {
			return nil, status.ErrCommitConflict
		}
	}
	for _, inv := range m.list {
		if inv.ID != invoiceID {
			continue
		}
		if inv.Status != models.InvoicePending {
			return nil, status.ErrCommitConflict
		}
		inv.Status = models.InvoicePaid
		inv.TransactionID = txID
		inv.PaidAt = &paidAt
		inv.ReceiptData = data
		cp := *inv
		return &cp, nil
	}
	return nil, status.ErrInvoiceNotFound
}

type memRegistrations struct {
	mu      sync.Mutex
	regs    map[string]*models.EventRegistration
	failAll bool
}

func (m *memRegistrations) Find(_ context.Context, userID, eventID string) (*models.EventRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, status.ErrRegistrationNotFound
	}
	for _, reg := range m.regs {
		if reg.UserID == userID && reg.EventID == eventID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, status.ErrRegistrationNotFound
}

func (m *memRegistrations) FindByEventName(ctx context.Context, userID, eventName string) (*models.EventRegistration, error) {
	return m.Find(ctx, userID, eventName)
}

func (m *memRegistrations) Confirm(_ context.Context, registrationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[registrationID]
	if !ok {
		return status.ErrRegistrationNotFound
	}
	reg.Status = models.RegistrationConfirmed
	return nil
}

func (m *memRegistrations) CheckIn(_ context.Context, registrationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[registrationID]
	if !ok {
		return status.ErrRegistrationNotFound
	}
	if reg.CheckedIn {
		return status.ErrCheckInConflict
	}
	reg.CheckedIn = true
	reg.CheckedInAt = &at
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (n *recordingNotifier) TicketIssued(_ context.Context, _ string, _ *models.Invoice, _ *models.IssuedTicket, _ []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail {
		return errors.New("channel publish failed")
	}
	return nil
}

func validReceipt(txID, amount string) *models.Receipt {
	return &models.Receipt{
		TransactionID: txID,
		SenderName:    "Abebe Kebede",
		ReceiverName:  "Addis Events PLC",
		Amount:        decimal.RequireFromString(amount),
		Date:          "2025-03-01 18:30:00",
		Timestamp:     time.Date(2025, 3, 1, 18, 30, 0, 0, time.Local),
		Status:        models.ReceiptValid,
	}
}

func pendingInvoice(id, userID, amount, eventName string) *models.Invoice {
	return &models.Invoice{
		ID:        id,
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Status:    models.InvoicePending,
		EventID:   "evt-" + eventName,
		EventName: eventName,
		EventTime: time.Now().Add(48 * time.Hour),
	}
}

func newEngine(invoices store.InvoiceStore, regs *memRegistrations, notifier Notifier) *Engine {
	tickets := ticket.NewService(&ticket.Config{
		Secret:        "test-signing-secret",
		PublicBaseURL: "https://tickets.example.com",
	}, invoices, regs)
	return NewEngine(invoices, regs, tickets, notifier)
}

func TestReconcileSettlesPendingInvoice(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	regs := &memRegistrations{regs: map[string]*models.EventRegistration{
		"reg001": {ID: "reg001", UserID: "usr001", EventID: "evt-Addis Jazz Night", Status: models.RegistrationPaymentInitiated},
	}}
	notifier := &recordingNotifier{}
	e := newEngine(invoices, regs, notifier)

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	require.NoError(t, err)

	assert.False(t, res.AlreadyPaid)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)
	assert.Equal(t, "CEK2L1XY9A", res.Invoice.TransactionID)
	require.NotNil(t, res.Invoice.PaidAt)
	assert.Equal(t, 2025, res.Invoice.PaidAt.Year(), "paid_at comes from the receipt timestamp")
	require.NotNil(t, res.Invoice.ReceiptData)
	assert.Equal(t, "Abebe Kebede", res.Invoice.ReceiptData.SenderName)

	require.NotNil(t, res.Ticket)
	assert.Equal(t, "inv001", res.Ticket.InvoiceID)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, models.RegistrationConfirmed, regs.regs["reg001"].Status)
}

func TestReconcileDuplicateSameUser(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	regs := &memRegistrations{regs: map[string]*models.EventRegistration{}}
	notifier := &recordingNotifier{}
	e := newEngine(invoices, regs, notifier)

	receipt := validReceipt("CEK2L1XY9A", "570.00")
	_, err := e.Reconcile(context.Background(), receipt, "usr001", "")
	require.NoError(t, err)

	// honest resubmission of the same receipt
	res, err := e.Reconcile(context.Background(), receipt, "usr001", "")
	require.NoError(t, err)
	assert.True(t, res.AlreadyPaid)
	require.NotNil(t, res.Ticket, "duplicate submissions get their ticket re-issued")
	assert.Equal(t, 2, notifier.calls)

	// still exactly one paid invoice
	paid := 0
	for _, inv := range invoices.list {
		if inv.Status == models.InvoicePaid {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestReconcileTransactionConsumedByOtherUser(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
		pendingInvoice("inv002", "usr002", "570.00", "Addis Jazz Night"),
	}}
	regs := &memRegistrations{regs: map[string]*models.EventRegistration{}}
	e := newEngine(invoices, regs, &recordingNotifier{})

	receipt := validReceipt("CEK2L1XY9A", "570.00")
	_, err := e.Reconcile(context.Background(), receipt, "usr001", "")
	require.NoError(t, err)

	_, err = e.Reconcile(context.Background(), receipt, "usr002", "")
	assert.ErrorIs(t, err, status.ErrTransactionConsumed)

	// the second user's invoice is untouched
	inv, _ := invoices.FindByTransaction(context.Background(), "CEK2L1XY9A")
	assert.Equal(t, "inv001", inv.ID)
	assert.Equal(t, models.InvoicePending, invoices.list[1].Status)
}

func TestReconcileNoMatchingInvoice(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "900.00", "Addis Jazz Night"),
	}}
	e := newEngine(invoices, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{})

	// confirmed amount below every pending invoice
	_, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	assert.ErrorIs(t, err, status.ErrNoMatchingInvoice)
	assert.Contains(t, err.Error(), "570", "the searched amount is part of the error")
}

func TestReconcileOverpaymentTolerated(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	e := newEngine(invoices, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{})

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "600.00"), "usr001", "")
	require.NoError(t, err)
	assert.Equal(t, "inv001", res.Invoice.ID)
}

func TestReconcileEventHintPreferred(t *testing.T) {
	// newest first: inv002 would win on recency alone
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv002", "usr001", "570.00", "Tech Expo"),
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	e := newEngine(invoices, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{})

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "Addis Jazz Night")
	require.NoError(t, err)
	assert.Equal(t, "inv001", res.Invoice.ID)
}

func TestReconcileNewestPendingWinsWithoutHint(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv002", "usr001", "570.00", "Tech Expo"),
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	e := newEngine(invoices, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{})

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	require.NoError(t, err)
	assert.Equal(t, "inv002", res.Invoice.ID)
}

func TestReconcileInvalidReceipt(t *testing.T) {
	e := newEngine(&memInvoices{}, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{})

	_, err := e.Reconcile(context.Background(), nil, "usr001", "")
	assert.ErrorIs(t, err, status.ErrInvalidReceipt)

	bad := validReceipt("CEK2L1XY9A", "570.00")
	bad.Status = models.ReceiptInvalid
	_, err = e.Reconcile(context.Background(), bad, "usr001", "")
	assert.ErrorIs(t, err, status.ErrInvalidReceipt)
}

func TestReconcileNotifierFailureIsWarning(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	e := newEngine(invoices, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{fail: true})

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	require.NoError(t, err, "a failed notification must not fail the payment")
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)
	assert.NotEmpty(t, res.Warnings)
}

func TestReconcileRegistrationLookupFailureIsWarning(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}
	regs := &memRegistrations{regs: map[string]*models.EventRegistration{}, failAll: true}
	e := newEngine(invoices, regs, &recordingNotifier{})

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)
	assert.NotEmpty(t, res.Warnings)
}

func TestReconcileConcurrentSameTransaction(t *testing.T) {
	invoices := &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
		pendingInvoice("inv002", "usr001", "570.00", "Tech Expo"),
	}}
	e := newEngine(invoices, &memRegistrations{regs: map[string]*models.EventRegistration{}}, &recordingNotifier{})

	const workers = 6
	var wg sync.WaitGroup
	results := make(chan *Result, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
			if err == nil {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	fresh := 0
	for res := range results {
		if !res.AlreadyPaid {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh, "the transaction id funds exactly one invoice")

	paid := 0
	for _, inv := range invoices.list {
		if inv.Status == models.InvoicePaid {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

// cancellingInvoices pulls the targeted invoice out of the pending state on
// the first commit attempt, so the conflict is about the invoice and not the
// transaction id.
type cancellingInvoices struct {
	*memInvoices
	cancelled bool
}

func (c *cancellingInvoices) CommitPayment(ctx context.Context, invoiceID, txID string, data *models.ReceiptData, paidAt time.Time) (*models.Invoice, error) {
	c.mu.Lock()
	if !c.cancelled {
		c.cancelled = true
		for _, inv := range c.list {
			if inv.ID == invoiceID {
				inv.Status = models.InvoiceCancelled
			}
		}
		c.mu.Unlock()
		return nil, status.ErrCommitConflict
	}
	c.mu.Unlock()
	return c.memInvoices.CommitPayment(ctx, invoiceID, txID, data, paidAt)
}

func TestReconcileReselectsWhenCandidateLeavesPending(t *testing.T) {
	invoices := &cancellingInvoices{memInvoices: &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv002", "usr001", "570.00", "Tech Expo"),
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}}
	regs := &memRegistrations{regs: map[string]*models.EventRegistration{}}
	notifier := &recordingNotifier{}
	e := newEngine(invoices, regs, notifier)

	res, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	require.NoError(t, err, "a concurrently cancelled candidate should not fail the reconciliation")

	assert.Equal(t, "inv001", res.Invoice.ID)
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)
	assert.Equal(t, models.InvoiceCancelled, invoices.list[0].Status)
}

func TestReconcileCancelledOnlyCandidateIsNoMatch(t *testing.T) {
	invoices := &cancellingInvoices{memInvoices: &memInvoices{list: []*models.Invoice{
		pendingInvoice("inv001", "usr001", "570.00", "Addis Jazz Night"),
	}}}
	regs := &memRegistrations{regs: map[string]*models.EventRegistration{}}
	notifier := &recordingNotifier{}
	e := newEngine(invoices, regs, notifier)

	_, err := e.Reconcile(context.Background(), validReceipt("CEK2L1XY9A", "570.00"), "usr001", "")
	assert.ErrorIs(t, err, status.ErrNoMatchingInvoice)
	assert.NotErrorIs(t, err, status.ErrCommitConflict)
}

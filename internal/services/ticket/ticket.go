// Package ticket issues and verifies the signed, opaque references that
// stand in for paid invoices. The reference carries only identifiers and a
// MAC; ticket status is always recomputed from the live invoice and
// registration state, never trusted from the token.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"encoding/base64"

	"ticket-engine/internal/status"
	"ticket-engine/internal/store"
	"ticket-engine/models"
	"ticket-engine/utils"
)

type Config struct {
	// Secret is the server-held MAC key. References signed with a different
	// secret fail verification as tampering.
	Secret string

	// PublicBaseURL is the prefix of the URL embedded in the scannable code.
	PublicBaseURL string
}

type Service struct {
	secret  []byte
	baseURL string

	invoices      store.InvoiceStore
	registrations store.RegistrationStore
}

func NewService(cfg *Config, invoices store.InvoiceStore, registrations store.RegistrationStore) *Service {
	return &Service{
		secret:        []byte(cfg.Secret),
		baseURL:       strings.TrimRight(cfg.PublicBaseURL, "/"),
		invoices:      invoices,
		registrations: registrations,
	}
}

// Issue derives a signed reference for a paid invoice. The MAC binds the
// invoice id, the transaction id, the issuance timestamp and a random nonce.
func (s *Service) Issue(invoice *models.Invoice) (*models.IssuedTicket, error) {
	if invoice.TransactionID == "" || invoice.Status != models.InvoicePaid {
		return nil, fmt.Errorf("ticket.Issue: invoice %s is not a completed payment", invoice.ID)
	}

	nonce, err := utils.GenerateCode(8)
	if err != nil {
		return nil, fmt.Errorf("ticket.Issue: nonce: %w", err)
	}

	issuedAt := time.Now()
	canonical := strings.Join([]string{
		invoice.ID,
		invoice.TransactionID,
		strconv.FormatInt(issuedAt.Unix(), 10),
		nonce,
	}, "|")

	mac := utils.Hmac256([]byte(canonical), s.secret)
	reference := base64.RawURLEncoding.EncodeToString([]byte(canonical + "|" + mac))

	return &models.IssuedTicket{
		Reference:     reference,
		URL:           fmt.Sprintf("%s/api/v1/tickets/%s", s.baseURL, reference),
		InvoiceID:     invoice.ID,
		TransactionID: invoice.TransactionID,
		IssuedAt:      issuedAt,
	}, nil
}

type claims struct {
	invoiceID     string
	transactionID string
	issuedAt      time.Time
	nonce         string
}

// decode reverses the reference encoding and checks its MAC. A MAC mismatch
// is reported as tampering, distinct from a merely malformed token.
func (s *Service) decode(reference string) (*claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(reference)
	if err != nil {
		return nil, fmt.Errorf("ticket.decode: %v: %w", err, status.ErrMalformedTicket)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 5 {
		return nil, fmt.Errorf("ticket.decode: %d fields: %w", len(parts), status.ErrMalformedTicket)
	}

	canonical := strings.Join(parts[:4], "|")
	if !utils.VerifyHmac256([]byte(canonical), s.secret, parts[4]) {
		return nil, status.ErrSignatureMismatch
	}

	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ticket.decode: timestamp: %w", status.ErrMalformedTicket)
	}

	return &claims{
		invoiceID:     parts[0],
		transactionID: parts[1],
		issuedAt:      time.Unix(unix, 0),
		nonce:         parts[3],
	}, nil
}

// Verify authenticates a presented reference and recomputes the ticket's
// current status from the invoice and registration it points to.
func (s *Service) Verify(ctx context.Context, reference string) (*models.TicketInfo, *models.Invoice, error) {
	info, invoice, _, err := s.resolve(ctx, reference)
	return info, invoice, err
}

// CheckIn marks a valid ticket as used. The underlying store update is
// conditional, so of two concurrent gate scans exactly one succeeds.
func (s *Service) CheckIn(ctx context.Context, reference string) (*models.TicketInfo, error) {
	info, _, reg, err := s.resolve(ctx, reference)
	if err != nil {
		return nil, err
	}

	switch info.Status {
	case models.TicketUsed:
		return nil, status.ErrTicketUsed
	case models.TicketExpired:
		return nil, status.ErrTicketExpired
	}

	if reg == nil {
		return nil, fmt.Errorf("ticket.CheckIn: no registration for invoice %s: %w", info.InvoiceID, status.ErrTicketNotFound)
	}

	now := time.Now()
	if err := s.registrations.CheckIn(ctx, reg.ID, now); err != nil {
		if errors.Is(err, status.ErrCheckInConflict) {
			// Another scan won the race; report the ticket as used.
			return nil, status.ErrTicketUsed
		}
		return nil, fmt.Errorf("ticket.CheckIn: %w", err)
	}

	info.Status = models.TicketUsed
	info.CheckedInAt = &now
	return info, nil
}

func (s *Service) resolve(ctx context.Context, reference string) (*models.TicketInfo, *models.Invoice, *models.EventRegistration, error) {
	c, err := s.decode(reference)
	if err != nil {
		return nil, nil, nil, err
	}

	invoice, err := s.invoices.FindPaid(ctx, c.invoiceID, c.transactionID)
	if err != nil {
		if errors.Is(err, status.ErrInvoiceNotFound) {
			return nil, nil, nil, status.ErrTicketNotFound
		}
		return nil, nil, nil, fmt.Errorf("ticket.resolve: %w", err)
	}

	reg := s.lookupRegistration(ctx, invoice)

	info := &models.TicketInfo{
		Reference:     reference,
		InvoiceID:     invoice.ID,
		TransactionID: invoice.TransactionID,
		UserID:        invoice.UserID,
		EventName:     invoice.EventName,
		Amount:        invoice.Amount,
		Status:        deriveStatus(reg, invoice.EventTime, time.Now()),
		IssuedAt:      c.issuedAt,
	}
	if reg != nil && reg.CheckedInAt != nil {
		info.CheckedInAt = reg.CheckedInAt
	}

	return info, invoice, reg, nil
}

// lookupRegistration falls back to lookup-by-event-name for legacy invoices
// lacking a direct event reference. Absence is not an error here; status
// derivation and check-in decide what it means.
func (s *Service) lookupRegistration(ctx context.Context, invoice *models.Invoice) *models.EventRegistration {
	if invoice.EventID != "" {
		if reg, err := s.registrations.Find(ctx, invoice.UserID, invoice.EventID); err == nil {
			return reg
		}
	}
	if invoice.EventName != "" {
		if reg, err := s.registrations.FindByEventName(ctx, invoice.UserID, invoice.EventName); err == nil {
			return reg
		}
	}
	return nil
}

// deriveStatus is the ticket state machine: used wins over expired, so an
// already-used ticket presented after its event time stays reported as used.
func deriveStatus(reg *models.EventRegistration, eventTime time.Time, now time.Time) models.TicketStatus {
	if reg != nil && reg.CheckedIn {
		return models.TicketUsed
	}
	if !eventTime.IsZero() && now.After(eventTime) {
		return models.TicketExpired
	}
	return models.TicketValid
}

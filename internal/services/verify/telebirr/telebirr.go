// Package telebirr verifies mobile-money transfers against the public
// telebirr receipt page.
package telebirr

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ticket-engine/internal/services/verify"
	"ticket-engine/internal/status"
	"ticket-engine/models"
)

type Config struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	Retries    int           `json:"retries" mapstructure:"retries"`
	RetryDelay time.Duration `json:"retry_delay" mapstructure:"retry_delay"`
}

type Verifier struct {
	baseURL string

	retries    int
	retryDelay time.Duration

	// hc is the http client.
	hc *http.Client
}

// New creates a new telebirr receipt verifier.
func New(cfg *Config) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	return &Verifier{
		baseURL:    cfg.BaseURL,
		retries:    cfg.Retries,
		retryDelay: delay,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (v *Verifier) Method() verify.Method {
	return verify.MethodTelebirr
}

func (v *Verifier) Retry() verify.RetryPolicy {
	return verify.RetryPolicy{Retries: v.retries, Delay: v.retryDelay}
}

func (v *Verifier) Verify(ctx context.Context, transactionID string) (*models.Receipt, error) {
	body, err := v.fetchReceiptPage(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telebirr.Verify: parse document: %w: %w", status.ErrProviderUnavailable, err)
	}

	return parseReceipt(doc, transactionID)
}

// parseReceipt extracts receipt fields from the page by label proximity; the
// page layout changes without notice and must not be relied on structurally.
func parseReceipt(doc *goquery.Document, transactionID string) (*models.Receipt, error) {
	text := strings.ToLower(doc.Text())
	if strings.Contains(text, "not found") || strings.Contains(text, "does not exist") {
		return nil, fmt.Errorf("telebirr: %s: %w", transactionID, status.ErrReceiptNotFound)
	}

	amountRaw := verify.LabeledCell(doc,
		"settled amount", "total paid amount", "transaction amount", "amount")
	amount, err := verify.ParseAmount(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("telebirr: %v: %w", err, status.ErrInvalidReceipt)
	}

	sender := verify.LabeledCell(doc, "payer name", "payer", "sender")
	if sender == "" {
		return nil, fmt.Errorf("telebirr: missing payer name: %w", status.ErrInvalidReceipt)
	}

	dateRaw := verify.LabeledCell(doc, "payment date", "transaction date", "date")

	return &models.Receipt{
		TransactionID: transactionID,
		SenderName:    sender,
		ReceiverName:  verify.LabeledCell(doc, "credited party name", "credited party", "receiver"),
		Amount:        amount,
		Date:          dateRaw,
		Timestamp:     verify.ParseTimestamp(dateRaw),
		Status:        models.ReceiptValid,
	}, nil
}

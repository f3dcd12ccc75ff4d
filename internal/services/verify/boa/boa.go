// Package boa verifies bank transfers against the Abyssinia public
// transfer-slip page.
package boa

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

// New creates a new Abyssinia slip verifier.
func New(cfg *Config) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
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
	return verify.MethodBOA
}

func (v *Verifier) Retry() verify.RetryPolicy {
	return verify.RetryPolicy{Retries: v.retries, Delay: v.retryDelay}
}

func (v *Verifier) Verify(ctx context.Context, transactionID string) (*models.Receipt, error) {
	body, err := v.fetchSlipPage(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("boa.Verify: parse document: %w: %w", status.ErrProviderUnavailable, err)
	}

	return parseSlip(doc, transactionID)
}

func parseSlip(doc *goquery.Document, transactionID string) (*models.Receipt, error) {
	text := strings.ToLower(doc.Text())
	if strings.Contains(text, "no transaction") || strings.Contains(text, "not found") {
		return nil, fmt.Errorf("boa: %s: %w", transactionID, status.ErrReceiptNotFound)
	}

	amountRaw := verify.LabeledCell(doc, "transferred amount", "transaction amount", "amount")
	amount, err := verify.ParseAmount(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("boa: %v: %w", err, status.ErrInvalidReceipt)
	}

	sender := verify.LabeledCell(doc, "source account name", "sender", "from")
	if sender == "" {
		return nil, fmt.Errorf("boa: missing sender: %w", status.ErrInvalidReceipt)
	}

	dateRaw := verify.LabeledCell(doc, "transaction date", "date")

	return &models.Receipt{
		TransactionID: transactionID,
		SenderName:    sender,
		ReceiverName:  verify.LabeledCell(doc, "receiver account name", "receiver", "to"),
		Amount:        amount,
		Date:          dateRaw,
		Timestamp:     verify.ParseTimestamp(dateRaw),
		Status:        models.ReceiptValid,
	}, nil
}

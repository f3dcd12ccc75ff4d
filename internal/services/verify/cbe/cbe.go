// Package cbe verifies bank transfers against the CBE receipt document
// endpoint. Unlike the HTML rails this is a two-stage fetch: the receipt is
// a binary document that has to be retrieved first and text-extracted
// second; retrieved artifacts are removed on every exit path.
package cbe

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

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

	// hc is the http client. The document endpoint is slow; the timeout is
	// deliberately generous.
	hc *http.Client
}

// New creates a new CBE receipt verifier.
func New(cfg *Config) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 3 * time.Second
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
	return verify.MethodCBE
}

func (v *Verifier) Retry() verify.RetryPolicy {
	return verify.RetryPolicy{Retries: v.retries, Delay: v.retryDelay}
}

func (v *Verifier) Verify(ctx context.Context, transactionID string) (*models.Receipt, error) {
	path, cleanup, err := v.fetchDocument(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	text, err := extractText(path)
	if err != nil {
		return nil, fmt.Errorf("cbe.Verify: %v: %w", err, status.ErrInvalidReceipt)
	}

	return parseReceipt(text, transactionID)
}

// extractText pulls the plain text out of the downloaded receipt document.
func extractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extractText: pdf.Open: %w", err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extractText: r.GetPlainText: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", fmt.Errorf("extractText: read: %w", err)
	}

	return buf.String(), nil
}

// parseReceipt extracts fields from the document text by label proximity.
func parseReceipt(text, transactionID string) (*models.Receipt, error) {
	if !strings.Contains(strings.ToUpper(text), strings.ToUpper(transactionID)) {
		return nil, fmt.Errorf("cbe: document does not carry reference %s: %w", transactionID, status.ErrReceiptNotFound)
	}

	amountRaw := verify.LabeledLine(text, "transferred amount", "amount")
	amount, err := verify.ParseAmount(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("cbe: %v: %w", err, status.ErrInvalidReceipt)
	}

	sender := verify.LabeledLine(text, "payer")
	if sender == "" {
		return nil, fmt.Errorf("cbe: missing payer: %w", status.ErrInvalidReceipt)
	}

	dateRaw := verify.LabeledLine(text, "payment date & time", "payment date")

	return &models.Receipt{
		TransactionID: transactionID,
		SenderName:    sender,
		ReceiverName:  verify.LabeledLine(text, "receiver"),
		Amount:        amount,
		Date:          dateRaw,
		Timestamp:     verify.ParseTimestamp(dateRaw),
		Status:        models.ReceiptValid,
	}, nil
}

package cbe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"ticket-engine/internal/status"
)

var pdfMagic = []byte("%PDF")

// maxDocumentSize bounds the receipt document download.
const maxDocumentSize = 4 << 20

// fetchDocument downloads the receipt document for a transaction id into a
// temporary file and returns its path together with a cleanup function. The
// caller must invoke cleanup on every exit path.
func (v *Verifier) fetchDocument(ctx context.Context, transactionID string) (string, func(), error) {
	lookupURL := fmt.Sprintf("%s/?id=%s", strings.TrimSuffix(v.baseURL, "/"), url.QueryEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetchDocument: http.NewReq: %w", err)
	}

	resp, err := v.hc.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetchDocument: http.Do: %w: %w", status.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil, fmt.Errorf("fetchDocument: %s: %w", transactionID, status.ErrReceiptNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", nil, fmt.Errorf("fetchDocument: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		return "", nil, fmt.Errorf("fetchDocument: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrProviderUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", nil, fmt.Errorf("fetchDocument: read body: %w: %w", status.ErrProviderUnavailable, err)
	}

	// The endpoint answers unknown ids with an HTML error page, not a 404.
	if !bytes.HasPrefix(body, pdfMagic) {
		return "", nil, fmt.Errorf("fetchDocument: %s: no document: %w", transactionID, status.ErrReceiptNotFound)
	}

	tmp, err := os.CreateTemp("", "cbe-receipt-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("fetchDocument: os.CreateTemp: %w", err)
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := tmp.Write(body); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("fetchDocument: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("fetchDocument: close temp: %w", err)
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

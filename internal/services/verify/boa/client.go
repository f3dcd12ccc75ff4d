package boa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ticket-engine/internal/status"
)

const (
	maxSlipSize = 1 << 20
	minSlipSize = 200
)

// fetchSlipPage retrieves the public transfer slip page for a reference.
func (v *Verifier) fetchSlipPage(ctx context.Context, transactionID string) ([]byte, error) {
	lookupURL := fmt.Sprintf("%s/slip/?trx=%s", strings.TrimSuffix(v.baseURL, "/"), url.QueryEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchSlipPage: http.NewReq: %w", err)
	}

	resp, err := v.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchSlipPage: http.Do: %w: %w", status.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetchSlipPage: %s: %w", transactionID, status.ErrReceiptNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("fetchSlipPage: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetchSlipPage: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrProviderUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSlipSize))
	if err != nil {
		return nil, fmt.Errorf("fetchSlipPage: read body: %w: %w", status.ErrProviderUnavailable, err)
	}
	if len(body) < minSlipSize {
		return nil, fmt.Errorf("fetchSlipPage: short body (%d bytes): %w", len(body), status.ErrProviderUnavailable)
	}

	return body, nil
}

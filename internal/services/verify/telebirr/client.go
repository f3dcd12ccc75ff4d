package telebirr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ticket-engine/internal/status"
)

// maxReceiptSize bounds the receipt page read; anything larger is not a
// receipt page.
const maxReceiptSize = 1 << 20

// minReceiptSize guards against truncated responses from the upstream
// gateway, which it emits under load instead of a 5xx.
const minReceiptSize = 200

// fetchReceiptPage retrieves the public receipt page for a transaction id.
func (v *Verifier) fetchReceiptPage(ctx context.Context, transactionID string) ([]byte, error) {
	lookupURL := fmt.Sprintf("%s/receipt/%s", strings.TrimSuffix(v.baseURL, "/"), url.PathEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchReceiptPage: http.NewReq: %w", err)
	}

	resp, err := v.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchReceiptPage: http.Do: %w: %w", status.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("fetchReceiptPage: %s: %w", transactionID, status.ErrReceiptNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("fetchReceiptPage: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetchReceiptPage: resp.StatusCode: %d: %w", resp.StatusCode, status.ErrProviderUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptSize))
	if err != nil {
		return nil, fmt.Errorf("fetchReceiptPage: read body: %w: %w", status.ErrProviderUnavailable, err)
	}
	if len(body) < minReceiptSize {
		return nil, fmt.Errorf("fetchReceiptPage: short body (%d bytes): %w", len(body), status.ErrProviderUnavailable)
	}

	return body, nil
}

package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/monitoring"
)

// Dispatcher selects a provider for a transaction id, applies the provider's
// retry policy and normalizes provider errors into a verification outcome.
// It never falls back across rails: a wrong initial guess is a routing error,
// not a transient condition.
type Dispatcher struct {
	providers map[Method]Provider
}

func NewDispatcher(providers ...Provider) *Dispatcher {
	d := &Dispatcher{providers: make(map[Method]Provider, len(providers))}
	for _, p := range providers {
		d.providers[p.Method()] = p
	}
	return d
}

// Dispatch verifies transactionID against the rail named by method, inferring
// the rail from the id prefix when method is empty.
func (d *Dispatcher) Dispatch(ctx context.Context, transactionID string, method Method) (*models.Receipt, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("dispatch: empty transaction id: %w", status.ErrInvalidReceipt)
	}
	if method == "" {
		method = InferMethod(transactionID)
	}

	p, ok := d.providers[method]
	if !ok {
		return nil, fmt.Errorf("dispatch %q: %w", method, status.ErrUnknownMethod)
	}

	policy := p.Retry()
	if policy.Retries < 0 {
		policy.Retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= policy.Retries; attempt++ {
		if attempt > 0 {
			slog.Info("dispatch: retrying verification",
				"method", method, "attempt", attempt, "error", lastErr)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("dispatch %s: %w: %w", method, status.ErrProviderUnavailable, ctx.Err())
			case <-time.After(policy.Delay):
			}
		}

		start := time.Now()
		receipt, err := p.Verify(ctx, transactionID)
		monitoring.ObserveVerification(string(method), outcomeLabel(err), time.Since(start))

		if err == nil {
			return receipt, nil
		}

		lastErr = err
		if !status.Transient(err) {
			// Terminal: not found or unparsable; retrying cannot help.
			return nil, err
		}
	}

	return nil, fmt.Errorf("dispatch %s: attempts exhausted: %w", method, lastErr)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case status.Transient(err):
		return "transient"
	default:
		return "terminal"
	}
}

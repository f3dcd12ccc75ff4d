package monitoring

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_verifications_total",
			Help: "Receipt verification attempts per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	verificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipt_fetch_duration_seconds",
			Help:    "Duration of receipt lookups against the institutions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliations_total",
			Help: "Reconciliation outcomes",
		},
		[]string{"outcome"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_check_ins_total",
			Help: "Gate check-in attempts per outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveVerification records one provider attempt.
func ObserveVerification(provider, outcome string, d time.Duration) {
	verifications.WithLabelValues(provider, outcome).Inc()
	verificationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func ObserveReconciliation(outcome string) {
	reconciliations.WithLabelValues(outcome).Inc()
}

func ObserveCheckIn(outcome string) {
	checkIns.WithLabelValues(outcome).Inc()
}

// StartMetricsServer serves /metrics on its own listener, separate from the
// API surface. The listener drains and closes when ctx is cancelled.
func StartMetricsServer(ctx context.Context, addr string) {
	e := echo.New()
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := &http.Server{Addr: addr, Handler: e}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}()
}

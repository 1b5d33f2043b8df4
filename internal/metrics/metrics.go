// Package metrics defines the Prometheus collectors for the live feed and
// serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Prometheus live feed metrics.
var (
	MessagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livefeed_messages_total",
			Help: "Total number of update messages received on the channel.",
		},
	)
	DecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livefeed_decode_errors_total",
			Help: "Total number of update messages dropped as malformed.",
		},
	)
	ReconnectsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livefeed_reconnects_total",
			Help: "Total number of channel reconnects scheduled after a transport error.",
		},
	)
	ConnectionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livefeed_connections_total",
			Help: "Total number of channel connection attempts by result.",
		},
		[]string{"result"},
	)
	ChannelState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livefeed_channel_state",
			Help: "Current channel state (0=disconnected, 1=connecting, 2=open, 3=error, 4=closed).",
		},
	)
	NotificationsShown = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livefeed_notifications_total",
			Help: "Total number of notifications shown.",
		},
	)
	BootstrapRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livefeed_bootstrap_requests_total",
			Help: "Total number of bootstrap requests by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesReceived,
		DecodeErrors,
		ReconnectsScheduled,
		ConnectionAttempts,
		ChannelState,
		NotificationsShown,
		BootstrapRequests,
	)
}

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Handler returns the /metrics handler.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/maxkimambo/bake/internal/logger"
)

// MetricsHandler serves /metrics from gatherer and answers /healthz.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), "bake.metrics"))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// MetricsServer exposes metrics over HTTP until Shutdown is called.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// StartMetricsServer listens on addr and serves MetricsHandler in the
// background. Use ":0" to pick a free port.
func StartMetricsServer(addr string, gatherer prometheus.Gatherer) (*MetricsServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s := &MetricsServer{
		server: &http.Server{
			Handler:      MetricsHandler(gatherer),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		listener: listener,
	}

	logger.Op.WithFields(map[string]interface{}{"addr": s.Addr()}).Info("Metrics server listening")
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Op.WithFields(map[string]interface{}{"error": err.Error()}).Error("Metrics server failed")
		}
	}()
	return s, nil
}

// Addr is the resolved listen address.
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight scrapes.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

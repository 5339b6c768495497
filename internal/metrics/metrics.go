// Package metrics exposes dockwin's window model counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1broseidon/dockwin/internal/platform"
)

// Metrics holds the collectors of one daemon.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal *prometheus.CounterVec
	Windows     prometheus.Gauge
	Desktops    prometheus.Gauge
	BackendInfo *prometheus.GaugeVec
	IPCRequests *prometheus.CounterVec
	Subscribers prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dockwin_events_total",
				Help: "Window-system events published, by kind",
			},
			[]string{"kind"},
		),
		Windows: f.NewGauge(prometheus.GaugeOpts{
			Name: "dockwin_windows",
			Help: "Windows currently listed in the task list",
		}),
		Desktops: f.NewGauge(prometheus.GaugeOpts{
			Name: "dockwin_desktops",
			Help: "Number of virtual desktops",
		}),
		BackendInfo: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dockwin_backend_info",
				Help: "Active window backend (value is always 1)",
			},
			[]string{"backend"},
		),
		IPCRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dockwin_ipc_requests_total",
				Help: "IPC requests handled, by command and status",
			},
			[]string{"command", "status"},
		),
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "dockwin_ipc_subscribers",
			Help: "Connected event-stream subscribers",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// SetBackend records the active backend.
func (m *Metrics) SetBackend(name string) {
	m.BackendInfo.Reset()
	m.BackendInfo.WithLabelValues(name).Set(1)
}

// Observe counts ev and moves the gauges by what it says. Window events
// only fire for task-list windows, so adds and removes pair up.
func (m *Metrics) Observe(ev platform.Event) {
	m.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	switch ev.Kind {
	case platform.WindowAdded:
		m.Windows.Inc()
	case platform.WindowRemoved:
		m.Windows.Dec()
	case platform.NumberOfDesktopsChanged:
		m.Desktops.Set(float64(ev.Count))
	}
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

package daemon

import (
	"log/slog"

	"github.com/1broseidon/dockwin/internal/metrics"
	"github.com/1broseidon/dockwin/internal/platform"
)

// View is the read side of the window-system facade. Every method is called
// on the event loop.
type View interface {
	Capabilities() platform.Capabilities
	Windows() []platform.Window
	ActiveWindow() platform.WindowID
	StackingOrder() []platform.WindowID
	Desktops() []platform.Desktop
	NumberOfDesktops() int
	CurrentDesktop() string
}

// EventRecorder logs published events and feeds them into metrics. It
// never reads the model back; the reconciler resets the gauges.
type EventRecorder struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEventRecorder creates a recorder. m may be nil.
func NewEventRecorder(m *metrics.Metrics, logger *slog.Logger) *EventRecorder {
	return &EventRecorder{metrics: m, logger: logger}
}

// Record handles one event. It runs on the event loop.
func (r *EventRecorder) Record(ev platform.Event) {
	attrs := []any{"kind", ev.Kind}
	if ev.WindowID != platform.NoWindow {
		attrs = append(attrs, "window_id", ev.WindowID)
	}
	if ev.Window != nil && ev.Window.AppID != "" {
		attrs = append(attrs, "app_id", ev.Window.AppID)
	}
	if ev.DesktopID != "" {
		attrs = append(attrs, "desktop", ev.DesktopID)
	}
	if ev.Kind == platform.NumberOfDesktopsChanged {
		attrs = append(attrs, "count", ev.Count)
	}
	r.logger.Debug("window event", attrs...)

	if r.metrics != nil {
		r.metrics.Observe(ev)
	}
}

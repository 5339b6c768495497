package windowsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/plasma"
	"github.com/1broseidon/dockwin/internal/wayland"
	"github.com/1broseidon/dockwin/internal/wlr"
	"github.com/1broseidon/dockwin/internal/x11"
)

// Backend preferences accepted by Connect.
const (
	BackendAuto   = "auto"
	BackendPlasma = plasma.Name
	BackendWLR    = wlr.Name
	BackendX11    = x11.Name
	BackendNone   = NoneBackend
)

// ErrUnknownBackend is returned for a backend preference Connect does not know.
var ErrUnknownBackend = errors.New("unknown window backend")

// ErrNoDisplay is returned by the x11 backend when DISPLAY is unset.
var ErrNoDisplay = errors.New("no display")

// ErrUnsupported is returned by a candidate whose display server lacks the
// window-management protocol the backend needs.
var ErrUnsupported = errors.New("window management protocol not offered")

// Options configures Connect.
type Options struct {
	// Backend is one of auto, plasma, wlr, x11 or none.
	Backend   string
	SelfAppID string
	Catalog   platform.AppCatalog
	Logger    *slog.Logger
}

// ValidBackend reports whether name is an accepted backend preference.
func ValidBackend(name string) bool {
	switch name {
	case BackendAuto, BackendPlasma, BackendWLR, BackendX11, BackendNone:
		return true
	}
	return false
}

// factory builds a backend given the options every backend receives.
type factory func(opts platform.Options) (platform.Backend, source, error)

// Connect tries each candidate backend and binds the preferred available backend. A
// session without any supported protocol yields a System in reduced mode;
// that is logged once and is not an error. Building a candidate performs the only
// blocking handshake; ctx is checked between candidates.
func Connect(ctx context.Context, opts Options) (*System, error) {
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}
	if !ValidBackend(opts.Backend) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	s := newSystem(opts.Logger)
	if err := s.attach(ctx, opts, candidates(opts.Backend, s.logger)); err != nil {
		return nil, err
	}
	return s, nil
}

// attach runs the candidate factories in order and keeps the first backend
// that comes up.
func (s *System) attach(ctx context.Context, opts Options, candidates []factory) error {
	bopts := platform.Options{
		SelfAppID: opts.SelfAppID,
		Catalog:   opts.Catalog,
		Publish:   s.publish,
		Logger:    s.logger,
	}
	for _, f := range candidates {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("window system connect: %w", err)
		}
		b, src, err := f(bopts)
		if err != nil {
			s.logger.Debug("window backend unavailable", "error", err)
			continue
		}
		if b == nil {
			continue
		}
		s.backend, s.source = b, src
		s.logger.Info("window backend selected", "backend", b.Name())
		return nil
	}
	s.logger.Warn("no supported window-management protocol; task and pager integration disabled")
	return nil
}

// candidates returns the factories to try for a backend preference.
func candidates(pref string, logger *slog.Logger) []factory {
	switch pref {
	case BackendNone:
		return nil
	case BackendX11:
		return []factory{x11Factory}
	case BackendPlasma, BackendWLR:
		return []factory{waylandFactory(pref, logger)}
	}
	return []factory{waylandFactory(BackendAuto, logger), x11Factory}
}

type waylandSource struct {
	conn *wayland.Conn
}

func (w waylandSource) Start(post func(func()), fail func(error)) { w.conn.Start(post, fail) }
func (w waylandSource) Close() error { return w.conn.Close() }

// waylandFactory connects to the Wayland display and binds plasma or wlr,
// as allowed by pref.
func waylandFactory(pref string, logger *slog.Logger) factory {
	return func(opts platform.Options) (platform.Backend, source, error) {
		conn, err := wayland.Dial(logger)
		if err != nil {
			return nil, nil, err
		}
		reg, err := conn.GetRegistry()
		if err == nil {
			err = conn.Roundtrip()
		}
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("wayland registry: %w", err)
		}

		var b platform.Backend
		switch {
		case pref != BackendWLR && plasma.Available(reg):
			b, err = plasma.New(conn, reg, opts)
		case pref != BackendPlasma && wlr.Available(reg):
			b, err = wlr.New(conn, reg, opts)
		default:
			conn.Close()
			return nil, nil, fmt.Errorf("wayland %s: %w", pref, ErrUnsupported)
		}
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return b, waylandSource{conn: conn}, nil
	}
}

type x11Source struct {
	b *x11.Backend
}

func (x x11Source) Start(post func(func()), fail func(error)) { x.b.Start(post, fail) }
func (x x11Source) Close() error { return nil }

func x11Factory(opts platform.Options) (platform.Backend, source, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, nil, fmt.Errorf("x11: DISPLAY not set: %w", ErrNoDisplay)
	}
	b, err := x11.New(opts)
	if err != nil {
		return nil, nil, err
	}
	return b, x11Source{b: b}, nil
}

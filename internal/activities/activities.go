// Package activities follows the current KDE activity over the session bus
// so backends can tell when a window left the activity being shown.
package activities

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	service = "org.kde.ActivityManager"
	path    = "/ActivityManager/Activities"
	iface   = "org.kde.ActivityManager.Activities"
)

// source yields the current activity and its changes.
type source interface {
	Current() (string, error)
	Changes() <-chan string
	Close() error
}

// Tracker forwards the current activity to a setter.
type Tracker struct {
	src    source
	logger *slog.Logger
}

// Connect reaches the activity manager on the session bus. An error means
// activities are unavailable in this session.
func Connect(logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := dialBus()
	if err != nil {
		return nil, err
	}
	return &Tracker{src: src, logger: logger}, nil
}

// Run reports the current activity, then every change, through set until
// ctx is done. set is called from Run's goroutine; callers post it onto
// the event loop.
func (t *Tracker) Run(ctx context.Context, set func(id string)) error {
	defer t.src.Close()

	id, err := t.src.Current()
	if err != nil {
		return fmt.Errorf("activities: current activity: %w", err)
	}
	t.logger.Debug("activities: current", "activity", id)
	set(id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-t.src.Changes():
			if !ok {
				return nil
			}
			if next == id {
				continue
			}
			id = next
			t.logger.Debug("activities: changed", "activity", id)
			set(id)
		}
	}
}

type busSource struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal
	changes chan string
	done    chan struct{}
	once    sync.Once
}

func dialBus() (*busSource, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("activities: session bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember("CurrentActivityChanged"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("activities: subscribe: %w", err)
	}

	s := &busSource{
		conn:    conn,
		obj:     conn.Object(service, path),
		signals: make(chan *dbus.Signal, 16),
		changes: make(chan string, 16),
		done:    make(chan struct{}),
	}
	conn.Signal(s.signals)
	go s.pump()
	return s, nil
}

// pump turns CurrentActivityChanged signals into activity ids until the
// source is stopped. Nobody reads changes once Run has returned.
func (s *busSource) pump() {
	defer close(s.changes)
	for {
		select {
		case <-s.done:
			return
		case sig := <-s.signals:
			id, ok := activityFromSignal(sig)
			if !ok {
				continue
			}
			select {
			case s.changes <- id:
			case <-s.done:
				return
			}
		}
	}
}

func (s *busSource) stop() {
	s.once.Do(func() { close(s.done) })
}

func activityFromSignal(sig *dbus.Signal) (string, bool) {
	if sig == nil || sig.Name != iface+".CurrentActivityChanged" || len(sig.Body) == 0 {
		return "", false
	}
	id, ok := sig.Body[0].(string)
	return id, ok
}

func (s *busSource) Current() (string, error) {
	var id string
	if err := s.obj.Call(iface+".CurrentActivity", 0).Store(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *busSource) Changes() <-chan string { return s.changes }

func (s *busSource) Close() error {
	s.stop()
	s.conn.RemoveSignal(s.signals)
	return s.conn.Close()
}

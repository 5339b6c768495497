package activities

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

type fakeSource struct {
	current string
	err     error
	changes chan string
	closed  bool
}

func (f *fakeSource) Current() (string, error) { return f.current, f.err }
func (f *fakeSource) Changes() <-chan string { return f.changes }
func (f *fakeSource) Close() error { f.closed = true; return nil }

func TestRun_ForwardsDistinctChanges(t *testing.T) {
	src := &fakeSource{current: "a", changes: make(chan string, 4)}
	src.changes <- "a"
	src.changes <- "b"
	src.changes <- "b"
	src.changes <- "c"
	close(src.changes)

	var got []string
	tr := &Tracker{src: src, logger: slog.New(slog.DiscardHandler)}
	if err := tr.Run(context.Background(), func(id string) { got = append(got, id) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("set calls = %v, want %v", got, want)
	}
	if !src.closed {
		t.Fatal("source not closed")
	}
}

func TestRun_CurrentError(t *testing.T) {
	src := &fakeSource{err: errors.New("no such service"), changes: make(chan string)}
	tr := &Tracker{src: src, logger: slog.New(slog.DiscardHandler)}
	if err := tr.Run(context.Background(), func(string) { t.Fatal("set called") }); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_StopsOnContext(t *testing.T) {
	src := &fakeSource{current: "a", changes: make(chan string)}
	tr := &Tracker{src: src, logger: slog.New(slog.DiscardHandler)}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := tr.Run(ctx, func(string) {}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestActivityFromSignal(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
		want string
		ok   bool
	}{
		{"nil", nil, "", false},
		{"changed", &dbus.Signal{Name: iface + ".CurrentActivityChanged", Body: []interface{}{"uuid-1"}}, "uuid-1", true},
		{"other member", &dbus.Signal{Name: iface + ".ActivityAdded", Body: []interface{}{"uuid-1"}}, "", false},
		{"empty body", &dbus.Signal{Name: iface + ".CurrentActivityChanged"}, "", false},
		{"wrong type", &dbus.Signal{Name: iface + ".CurrentActivityChanged", Body: []interface{}{uint32(1)}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := activityFromSignal(tt.sig)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("activityFromSignal() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPump_ExitsWhenStoppedWithUnreadChange(t *testing.T) {
	s := &busSource{
		signals: make(chan *dbus.Signal, 1),
		changes: make(chan string),
		done:    make(chan struct{}),
	}
	s.signals <- &dbus.Signal{Name: iface + ".CurrentActivityChanged", Body: []interface{}{"uuid-1"}}

	exited := make(chan struct{})
	go func() {
		s.pump()
		close(exited)
	}()

	// Let pump pick up the signal and block on the unread change.
	time.Sleep(20 * time.Millisecond)
	s.stop()
	s.stop()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("pump still blocked after stop")
	}
	if _, ok := <-s.changes; ok {
		t.Fatal("changes not closed")
	}
}

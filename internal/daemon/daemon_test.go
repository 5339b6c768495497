package daemon

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/1broseidon/dockwin/internal/config"
	"github.com/1broseidon/dockwin/internal/eventloop"
	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/metrics"
	"github.com/1broseidon/dockwin/internal/platform"
)

type fakeView struct {
	caps     platform.Capabilities
	windows  []platform.Window
	active   platform.WindowID
	stacking []platform.WindowID
	desktops []platform.Desktop
	count    int
	current  string
}

func (f *fakeView) Capabilities() platform.Capabilities { return f.caps }
func (f *fakeView) Windows() []platform.Window { return f.windows }
func (f *fakeView) ActiveWindow() platform.WindowID { return f.active }
func (f *fakeView) StackingOrder() []platform.WindowID { return f.stacking }
func (f *fakeView) Desktops() []platform.Desktop { return f.desktops }
func (f *fakeView) NumberOfDesktops() int { return f.count }
func (f *fakeView) CurrentDesktop() string { return f.current }

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestAcquireLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dockwin.lock")

	release, err := acquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := acquireLock(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second lock = %v, want ErrAlreadyRunning", err)
	}
	release()

	release, err = acquireLock(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	release()
}

func TestCheckSnapshot(t *testing.T) {
	desktops := []platform.Desktop{{ID: "d1"}, {ID: "d2"}}
	vd := platform.Capabilities{VirtualDesktops: true}

	tests := []struct {
		name string
		snap snapshot
		want []string
	}{
		{
			name: "consistent",
			snap: snapshot{
				caps:     vd,
				windows:  []platform.Window{{ID: "a", DesktopID: "d1"}, {ID: "b", OnAllDesktops: true}},
				stacking: []platform.WindowID{"a", "b"},
				desktops: desktops,
				count:    2,
				current:  "d1",
			},
		},
		{
			name: "duplicates",
			snap: snapshot{
				windows:  []platform.Window{{ID: "a"}, {ID: "a"}},
				stacking: []platform.WindowID{"a", "a"},
			},
			want: []string{"window a listed twice", "window a stacked twice"},
		},
		{
			name: "desktop drift",
			snap: snapshot{
				caps:     vd,
				windows:  []platform.Window{{ID: "a", DesktopID: "d9"}},
				desktops: desktops,
				count:    3,
				current:  "d7",
			},
			want: []string{
				"desktop count 3, 2 desktops listed",
				"current desktop d7 unknown",
				"window a on unknown desktop d9",
			},
		},
		{
			name: "desktops ignored without capability",
			snap: snapshot{
				windows: []platform.Window{{ID: "a", DesktopID: "d9"}},
				count:   0,
				current: "d7",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkSnapshot(tt.snap)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("checkSnapshot() = %q, want %q", got, tt.want)
			}
		})
	}
}

func runLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop := eventloop.New(8, discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func TestReconcileNow_UpdatesGauges(t *testing.T) {
	loop := runLoop(t)
	view := &fakeView{
		caps:     platform.Capabilities{VirtualDesktops: true},
		windows:  []platform.Window{{ID: "a", DesktopID: "d1"}, {ID: "b", DesktopID: "d1"}},
		desktops: []platform.Desktop{{ID: "d1"}},
		count:    1,
		current:  "d1",
	}
	m := metrics.New()
	r := NewReconciler(ReconcilerConfig{Metrics: m, Logger: discard()}, loop, view)

	if issues := r.ReconcileNow(context.Background()); len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if got := gaugeValue(t, m, "dockwin_windows"); got != 2 {
		t.Fatalf("dockwin_windows = %v, want 2", got)
	}
	if got := gaugeValue(t, m, "dockwin_desktops"); got != 1 {
		t.Fatalf("dockwin_desktops = %v, want 1", got)
	}
}

func TestReconcileNow_LoopStopped(t *testing.T) {
	loop := eventloop.New(1, discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop.Run(ctx)

	r := NewReconciler(ReconcilerConfig{Logger: discard()}, loop, &fakeView{})
	if issues := r.ReconcileNow(context.Background()); issues != nil {
		t.Fatalf("issues = %v, want nil", issues)
	}
}

func TestEventRecorder_ObservesEvents(t *testing.T) {
	m := metrics.New()
	rec := NewEventRecorder(m, discard())

	rec.Record(platform.WindowEvent(platform.WindowAdded, platform.Window{ID: "a", AppID: "org.kde.kate"}))
	rec.Record(platform.WindowEvent(platform.WindowAdded, platform.Window{ID: "b", AppID: "org.kde.dolphin"}))
	rec.Record(platform.Event{Kind: platform.WindowTitleChanged, WindowID: "a"})
	rec.Record(platform.Event{Kind: platform.WindowRemoved, WindowID: "b"})
	rec.Record(platform.Event{Kind: platform.NumberOfDesktopsChanged, Count: 4})

	if got := gaugeValue(t, m, "dockwin_windows"); got != 1 {
		t.Fatalf("dockwin_windows = %v", got)
	}
	if got := gaugeValue(t, m, "dockwin_desktops"); got != 4 {
		t.Fatalf("dockwin_desktops = %v", got)
	}

	// A recorder without metrics only logs.
	NewEventRecorder(nil, discard()).Record(platform.Event{Kind: platform.WindowRemoved, WindowID: "a"})
}

func gaugeValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() == name && len(fam.GetMetric()) == 1 {
			return fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("gauge %s not found", name)
	return 0
}

func TestRun_ReducedModeServesIPC(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	cfg := config.DefaultConfig()
	cfg.Backend = "none"
	cfg.IPC.Socket = filepath.Join(dir, "dockwin.sock")
	cfg.Catalog.Dirs = []string{dir}
	cfg.Catalog.Watch = false
	cfg.Activities.Enabled = false
	lock := filepath.Join(dir, "dockwin.lock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Config:   cfg,
			Logger:   discard(),
			LockPath: lock,
			Ready:    func() { close(ready) },
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon never became ready")
	}

	status, err := ipc.NewClientAt(cfg.IPC.Socket).GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Backend != "none" || !status.Reduced || status.WindowCount != 0 {
		t.Fatalf("status = %+v", status)
	}

	if err := Run(ctx, Options{Config: cfg, Logger: discard(), LockPath: lock}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

package windowsystem

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/dockwin/internal/platform"
)

type fakeBackend struct {
	reduced
	publish platform.Publisher

	windows map[platform.WindowID]platform.Window
	active  platform.WindowID
	calls   []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Window(id platform.WindowID) (platform.Window, bool) {
	w, ok := f.windows[id]
	return w, ok
}

func (f *fakeBackend) ActiveWindow() platform.WindowID { return f.active }

func (f *fakeBackend) ActivateWindow(id platform.WindowID) {
	f.calls = append(f.calls, "activate "+string(id))
}

func (f *fakeBackend) MinimizeWindow(id platform.WindowID) {
	f.calls = append(f.calls, "minimize "+string(id))
}

func attachFake(t *testing.T) (*System, *fakeBackend) {
	t.Helper()
	s := newSystem(nil)
	fb := &fakeBackend{windows: map[platform.WindowID]platform.Window{}}
	err := s.attach(context.Background(), Options{}, []factory{
		func(platform.Options) (platform.Backend, source, error) { return nil, nil, errors.New("absent") },
		func(opts platform.Options) (platform.Backend, source, error) {
			fb.publish = opts.Publish
			return fb, nil, nil
		},
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	return s, fb
}

func TestAttach_FallsThroughToFirstAvailable(t *testing.T) {
	s, _ := attachFake(t)
	if s.BackendName() != "fake" || s.Reduced() {
		t.Fatalf("backend = %q, reduced = %v", s.BackendName(), s.Reduced())
	}
}

func TestAttach_ReducedModeIsNotAnError(t *testing.T) {
	s := newSystem(nil)
	err := s.attach(context.Background(), Options{}, []factory{
		func(platform.Options) (platform.Backend, source, error) { return nil, nil, errors.New("absent") },
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !s.Reduced() || s.BackendName() != NoneBackend {
		t.Fatalf("backend = %q", s.BackendName())
	}
	s.ActivateOrMinimizeWindow("1")
	s.SetShowingDesktop(true)
	if s.Windows() != nil || s.ActiveWindow() != platform.NoWindow || s.ShowingDesktop() {
		t.Fatal("reduced mode reported state")
	}
}

func TestAttach_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSystem(nil)
	err := s.attach(ctx, Options{}, []factory{
		func(platform.Options) (platform.Backend, source, error) {
			t.Fatal("factory ran after cancellation")
			return nil, nil, nil
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("attach err = %v, want context.Canceled", err)
	}
}

func TestConnect_RejectsUnknownBackend(t *testing.T) {
	_, err := Connect(context.Background(), Options{Backend: "weston"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestConnect_NoneIsReduced(t *testing.T) {
	s, err := Connect(context.Background(), Options{Backend: BackendNone})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.Reduced() {
		t.Fatalf("backend = %q", s.BackendName())
	}
}

func TestSubscribe_RepublishesInOrder(t *testing.T) {
	s, fb := attachFake(t)

	var first, second []platform.EventKind
	cancelFirst := s.Subscribe(func(e platform.Event) { first = append(first, e.Kind) })
	s.Subscribe(func(e platform.Event) { second = append(second, e.Kind) })

	fb.publish(platform.Event{Kind: platform.WindowAdded})
	fb.publish(platform.Event{Kind: platform.WindowTitleChanged})
	cancelFirst()
	cancelFirst()
	fb.publish(platform.Event{Kind: platform.WindowRemoved})

	if want := []platform.EventKind{platform.WindowAdded, platform.WindowTitleChanged}; !reflect.DeepEqual(first, want) {
		t.Fatalf("first = %v, want %v", first, want)
	}
	if want := []platform.EventKind{platform.WindowAdded, platform.WindowTitleChanged, platform.WindowRemoved}; !reflect.DeepEqual(second, want) {
		t.Fatalf("second = %v, want %v", second, want)
	}
}

func TestSubscribe_CancelDuringDelivery(t *testing.T) {
	s, fb := attachFake(t)

	var got int
	var cancel func()
	cancel = s.Subscribe(func(platform.Event) { cancel() })
	s.Subscribe(func(platform.Event) { got++ })

	fb.publish(platform.Event{Kind: platform.WindowAdded})
	fb.publish(platform.Event{Kind: platform.WindowAdded})
	if got != 2 {
		t.Fatalf("second subscriber saw %d events, want 2", got)
	}
}

func TestActivateOrMinimizeWindow(t *testing.T) {
	tests := []struct {
		name   string
		window platform.Window
		active platform.WindowID
		want   []string
	}{
		{"inactive", platform.Window{ID: "a"}, "b", []string{"activate a"}},
		{"active", platform.Window{ID: "a"}, "a", []string{"minimize a"}},
		{"active but minimized", platform.Window{ID: "a", Minimized: true}, "a", []string{"activate a"}},
		{"none active", platform.Window{ID: "a"}, platform.NoWindow, []string{"activate a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fb := attachFake(t)
			fb.windows[tt.window.ID] = tt.window
			fb.active = tt.active

			s.ActivateOrMinimizeWindow(tt.window.ID)
			s.ActivateOrMinimizeWindow("unknown")

			if !reflect.DeepEqual(fb.calls, tt.want) {
				t.Fatalf("calls = %v, want %v", fb.calls, tt.want)
			}
		})
	}
}

func TestValidBackend(t *testing.T) {
	for _, name := range []string{"auto", "plasma", "wlr", "x11", "none"} {
		if !ValidBackend(name) {
			t.Errorf("ValidBackend(%q) = false", name)
		}
	}
	if ValidBackend("gnome") {
		t.Error(`ValidBackend("gnome") = true`)
	}
}

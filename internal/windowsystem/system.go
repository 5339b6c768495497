// Package windowsystem is the single entry point the rest of dockwin uses to
// observe and drive windows and virtual desktops.
//
// A System binds to whichever backend the session supports, republishes its
// events unchanged to subscribers, and forwards commands. All methods must be
// called from the event loop goroutine.
package windowsystem

import (
	"log/slog"

	"github.com/1broseidon/dockwin/internal/platform"
)

// System is the facade over the active backend.
type System struct {
	backend platform.Backend
	source  source
	logger  *slog.Logger

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(platform.Event)
}

// source delivers backend input to the event loop.
type source interface {
	Start(post func(func()), fail func(error))
	Close() error
}

// newSystem wires a facade around an already constructed backend. The
// backend's publisher must be s.publish.
func newSystem(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{backend: reduced{}, logger: logger}
}

// Start begins reading backend input. post must enqueue onto the event loop;
// fail ends the loop when the windowing-system connection breaks.
func (s *System) Start(post func(func()), fail func(error)) {
	if s.source != nil {
		s.source.Start(post, fail)
	}
}

// Close releases the backend and its connection.
func (s *System) Close() error {
	err := s.backend.Close()
	if s.source != nil {
		if cerr := s.source.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Subscribe registers fn for every published event and returns a function
// that removes it. fn runs on the event loop and must not block.
func (s *System) Subscribe(fn func(platform.Event)) (cancel func()) {
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// publish is the backend's Publisher: events go out unchanged, in order.
func (s *System) publish(ev platform.Event) {
	for _, sub := range s.subs {
		sub.fn(ev)
	}
}

// BackendName returns the active backend's name, "none" in reduced mode.
func (s *System) BackendName() string { return s.backend.Name() }

// Capabilities returns what the active backend supports.
func (s *System) Capabilities() platform.Capabilities { return s.backend.Capabilities() }

// Reduced reports whether no window backend is available.
func (s *System) Reduced() bool {
	_, ok := s.backend.(reduced)
	return ok
}

// Windows returns the windows shown in the task list.
func (s *System) Windows() []platform.Window { return s.backend.Windows() }

// Window returns one listed window.
func (s *System) Window(id platform.WindowID) (platform.Window, bool) { return s.backend.Window(id) }

// ActiveWindow returns the active window or platform.NoWindow.
func (s *System) ActiveWindow() platform.WindowID { return s.backend.ActiveWindow() }

// StackingOrder returns windows front to back, when the backend knows it.
func (s *System) StackingOrder() []platform.WindowID { return s.backend.StackingOrder() }

// Desktops returns the virtual desktops.
func (s *System) Desktops() []platform.Desktop { return s.backend.Desktops() }

// NumberOfDesktops returns the number of virtual desktops.
func (s *System) NumberOfDesktops() int { return s.backend.NumberOfDesktops() }

// CurrentDesktop returns the current desktop id.
func (s *System) CurrentDesktop() string { return s.backend.CurrentDesktop() }

// ShowingDesktop reports whether a show-desktop cycle is active.
func (s *System) ShowingDesktop() bool { return s.backend.ShowingDesktop() }

// ActivateWindow requests activation of a window. Like every command, its
// effect is only visible once the resulting events arrive.
func (s *System) ActivateWindow(id platform.WindowID) { s.backend.ActivateWindow(id) }

// ActivateOrMinimizeWindow is the task-button toggle: activate a window
// that is not active or is minimized, otherwise minimize it.
func (s *System) ActivateOrMinimizeWindow(id platform.WindowID) {
	w, ok := s.backend.Window(id)
	if !ok {
		return
	}
	if s.backend.ActiveWindow() != id || w.Minimized {
		s.backend.ActivateWindow(id)
		return
	}
	s.backend.MinimizeWindow(id)
}

// MinimizeWindow requests minimization of a window.
func (s *System) MinimizeWindow(id platform.WindowID) { s.backend.MinimizeWindow(id) }

// CloseWindow requests a window to close.
func (s *System) CloseWindow(id platform.WindowID) { s.backend.CloseWindow(id) }

// SetCurrentDesktop requests a desktop switch.
func (s *System) SetCurrentDesktop(id string) { s.backend.SetCurrentDesktop(id) }

// SetShowingDesktop starts or ends a show-desktop cycle.
func (s *System) SetShowingDesktop(show bool) { s.backend.SetShowingDesktop(show) }

// ResetActiveWindow forgets the active window.
func (s *System) ResetActiveWindow() { s.backend.ResetActiveWindow() }

// SetCurrentActivity forwards the current activity to the backend.
func (s *System) SetCurrentActivity(id string) { s.backend.SetCurrentActivity(id) }

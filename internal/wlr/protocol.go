package wlr

import (
	"github.com/1broseidon/dockwin/internal/wayland"
)

// Global interface names.
const (
	ManagerInterface  = "zwlr_foreign_toplevel_manager_v1"
	SeatInterface     = "wl_seat"
	managerMaxVersion = 3
	seatMaxVersion    = 1
)

// zwlr_foreign_toplevel_manager_v1 opcodes.
const (
	mgrReqStop = 0

	mgrEvToplevel = 0
	mgrEvFinished = 1
)

// zwlr_foreign_toplevel_handle_v1 opcodes.
const (
	reqSetMinimized = 2
	reqActivate     = 4
	reqClose        = 5
	reqDestroy      = 7

	evTitle       = 0
	evAppID       = 1
	evOutputEnter = 2
	evOutputLeave = 3
	evState       = 4
	evDone        = 5
	evClosed      = 6
	evParent      = 7
)

// zwlr_foreign_toplevel_handle_v1.state values.
const (
	stateMaximized  = 0
	stateMinimized  = 1
	stateActivated  = 2
	stateFullscreen = 3
)

// compositor is the request side of the protocol.
type compositor interface {
	// activate reports false when no seat is bound.
	activate(handle uint32) bool
	minimize(handle uint32)
	closeToplevel(handle uint32)
	destroy(handle uint32)
	stop()
}

type wireCompositor struct {
	conn    *wayland.Conn
	manager uint32
	seat    uint32
	b       *Backend
}

func (w *wireCompositor) send(r *wayland.Request) {
	if err := w.conn.Send(r); err != nil {
		w.b.logger.Warn("wlr: request failed", "error", err)
	}
}

func (w *wireCompositor) activate(handle uint32) bool {
	if w.seat == 0 {
		return false
	}
	w.send(wayland.NewRequest(handle, reqActivate).Object(w.seat))
	return true
}

func (w *wireCompositor) minimize(handle uint32) {
	w.send(wayland.NewRequest(handle, reqSetMinimized))
}

func (w *wireCompositor) closeToplevel(handle uint32) {
	w.send(wayland.NewRequest(handle, reqClose))
}

func (w *wireCompositor) destroy(handle uint32) {
	w.send(wayland.NewRequest(handle, reqDestroy))
	w.conn.Forget(handle)
}

func (w *wireCompositor) stop() {
	w.send(wayland.NewRequest(w.manager, mgrReqStop))
}

// register routes the events of a compositor-created handle into the backend.
func (w *wireCompositor) register(handle uint32) {
	w.conn.Register(handle, wayland.DispatcherFunc(func(m *wayland.Message) {
		w.b.dispatchToplevel(handle, m)
	}))
}

// dispatchManager decodes zwlr_foreign_toplevel_manager_v1 events.
func (b *Backend) dispatchManager(m *wayland.Message) {
	switch m.Opcode {
	case mgrEvToplevel:
		handle := m.NewID()
		if m.Err() != nil {
			return
		}
		if b.register != nil {
			b.register(handle)
		}
		b.toplevelCreated(handle)
	case mgrEvFinished:
		b.finished()
	}
}

// dispatchToplevel decodes zwlr_foreign_toplevel_handle_v1 events.
func (b *Backend) dispatchToplevel(handle uint32, m *wayland.Message) {
	switch m.Opcode {
	case evTitle:
		if s := m.String(); m.Err() == nil {
			b.titleChanged(handle, s)
		}
	case evAppID:
		if s := m.String(); m.Err() == nil {
			b.appIDChanged(handle, s)
		}
	case evOutputEnter, evOutputLeave, evParent:
	case evState:
		if states := m.Uint32s(); m.Err() == nil {
			b.stateChanged(handle, states)
		}
	case evDone:
		b.done(handle)
	case evClosed:
		b.closed(handle)
	}
	if err := m.Err(); err != nil {
		b.logger.Debug("wlr: malformed toplevel event dropped", "opcode", m.Opcode, "error", err)
	}
}

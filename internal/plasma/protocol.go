package plasma

import (
	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/wayland"
)

// Global interface names.
const (
	WindowManagementInterface  = "org_kde_plasma_window_management"
	VirtualDesktopsInterface   = "org_kde_plasma_virtual_desktop_management"
	windowManagementMaxVersion = 16
	virtualDesktopsMaxVersion  = 2
	uuidWindowsSince           = 13
)

// org_kde_plasma_window_management.state bits.
const (
	stateActive           uint32 = 1 << 0
	stateMinimized        uint32 = 1 << 1
	stateMaximized        uint32 = 1 << 2
	stateFullscreen       uint32 = 1 << 3
	stateOnAllDesktops    uint32 = 1 << 6
	stateDemandsAttention uint32 = 1 << 7
	stateSkipTaskbar      uint32 = 1 << 12
)

// org_kde_plasma_window_management opcodes.
const (
	mgrReqGetWindow       = 1
	mgrReqGetWindowByUUID = 2

	mgrEvShowDesktopChanged   = 0
	mgrEvWindow               = 1
	mgrEvStackingOrderChanged = 2
	mgrEvStackingOrderUUIDs   = 3
	mgrEvWindowWithUUID       = 4
)

// org_kde_plasma_window opcodes.
const (
	winReqSetState = 0
	winReqClose    = 4
	winReqDestroy  = 7

	winEvTitleChanged          = 0
	winEvAppIDChanged          = 1
	winEvStateChanged          = 2
	winEvUnmapped              = 5
	winEvInitialState          = 6
	winEvGeometry              = 8
	winEvPIDChanged            = 10
	winEvVirtualDesktopEntered = 11
	winEvVirtualDesktopLeft    = 12
	winEvActivityEntered       = 14
	winEvActivityLeft          = 15
)

// org_kde_plasma_virtual_desktop_management and org_kde_plasma_virtual_desktop opcodes.
const (
	vdmReqGetVirtualDesktop = 0

	vdmEvDesktopCreated = 0
	vdmEvDesktopRemoved = 1

	vdReqActivate = 0

	vdEvName      = 1
	vdEvActivated = 2
)

// compositor is the request side of both protocols. Handles are protocol
// object ids and never leave this package.
type compositor interface {
	getWindow(internalID uint32) uint32
	getWindowByUUID(uuid string) uint32
	setState(window, flags, state uint32)
	closeWindow(window uint32)
	destroyWindow(window uint32)
	getDesktop(id string) uint32
	activateDesktop(desktop uint32)
	forgetDesktop(desktop uint32)
}

// wireCompositor sends requests over a Wayland connection and routes the
// events of every object it creates back into the backend.
type wireCompositor struct {
	conn    *wayland.Conn
	manager uint32
	vdm     uint32
	b       *Backend
}

func (w *wireCompositor) send(r *wayland.Request) {
	if err := w.conn.Send(r); err != nil {
		w.b.logger.Warn("plasma: request failed", "error", err)
	}
}

func (w *wireCompositor) newWindowObject() uint32 {
	var id uint32
	id = w.conn.NewObject(wayland.DispatcherFunc(func(m *wayland.Message) {
		w.b.dispatchWindow(id, m)
	}))
	return id
}

func (w *wireCompositor) getWindow(internalID uint32) uint32 {
	id := w.newWindowObject()
	w.send(wayland.NewRequest(w.manager, mgrReqGetWindow).NewID(id).Uint(internalID))
	return id
}

func (w *wireCompositor) getWindowByUUID(uuid string) uint32 {
	id := w.newWindowObject()
	w.send(wayland.NewRequest(w.manager, mgrReqGetWindowByUUID).NewID(id).String(uuid))
	return id
}

func (w *wireCompositor) setState(window, flags, state uint32) {
	w.send(wayland.NewRequest(window, winReqSetState).Uint(flags).Uint(state))
}

func (w *wireCompositor) closeWindow(window uint32) {
	w.send(wayland.NewRequest(window, winReqClose))
}

func (w *wireCompositor) destroyWindow(window uint32) {
	w.send(wayland.NewRequest(window, winReqDestroy))
	w.conn.Forget(window)
}

func (w *wireCompositor) getDesktop(desktopID string) uint32 {
	id := w.conn.NewObject(wayland.DispatcherFunc(func(m *wayland.Message) {
		w.b.dispatchDesktop(desktopID, m)
	}))
	w.send(wayland.NewRequest(w.vdm, vdmReqGetVirtualDesktop).NewID(id).String(desktopID))
	return id
}

func (w *wireCompositor) activateDesktop(desktop uint32) {
	w.send(wayland.NewRequest(desktop, vdReqActivate))
}

func (w *wireCompositor) forgetDesktop(desktop uint32) {
	w.conn.Forget(desktop)
}

// dispatchManager decodes org_kde_plasma_window_management events.
func (b *Backend) dispatchManager(m *wayland.Message) {
	switch m.Opcode {
	case mgrEvShowDesktopChanged:
		state := m.Uint()
		// The compositor's own show-desktop also hides the dock, so it is
		// never used; the toggle is synthesized per window instead.
		b.logger.Debug("plasma: compositor show_desktop state ignored", "state", state)
	case mgrEvWindow:
		internalID := m.Uint()
		if m.Err() == nil {
			b.legacyWindowCreated(internalID)
		}
	case mgrEvStackingOrderChanged:
		// Internal ids; the uuid variant carries the same information.
	case mgrEvStackingOrderUUIDs:
		uuids := m.String()
		if m.Err() != nil {
			b.logger.Debug("plasma: malformed stacking order dropped", "error", m.Err())
			return
		}
		b.stackingOrderChanged(uuids)
	case mgrEvWindowWithUUID:
		_ = m.Uint()
		uuid := m.String()
		if m.Err() == nil {
			b.windowCreated(uuid)
		}
	}
}

// dispatchWindow decodes org_kde_plasma_window events for one window.
func (b *Backend) dispatchWindow(handle uint32, m *wayland.Message) {
	switch m.Opcode {
	case winEvTitleChanged:
		if s := m.String(); m.Err() == nil {
			b.titleChanged(handle, s)
		}
	case winEvAppIDChanged:
		if s := m.String(); m.Err() == nil {
			b.appIDChanged(handle, s)
		}
	case winEvStateChanged:
		if flags := m.Uint(); m.Err() == nil {
			b.stateChanged(handle, flags)
		}
	case winEvUnmapped:
		b.windowClosed(handle)
	case winEvInitialState:
		b.initialState(handle)
	case winEvGeometry:
		r := platform.Rect{X: int(m.Int()), Y: int(m.Int()), Width: int(m.Uint()), Height: int(m.Uint())}
		if m.Err() == nil {
			b.geometryChanged(handle, r)
		}
	case winEvPIDChanged:
		if pid := m.Uint(); m.Err() == nil {
			b.pidChanged(handle, int(pid))
		}
	case winEvVirtualDesktopEntered:
		if id := m.String(); m.Err() == nil {
			b.desktopEntered(handle, id)
		}
	case winEvVirtualDesktopLeft:
		if id := m.String(); m.Err() == nil {
			b.desktopLeft(handle, id)
		}
	case winEvActivityEntered:
		if id := m.String(); m.Err() == nil {
			b.activityEntered(handle, id)
		}
	case winEvActivityLeft:
		if id := m.String(); m.Err() == nil {
			b.activityLeft(handle, id)
		}
	}
	if err := m.Err(); err != nil {
		b.logger.Debug("plasma: malformed window event dropped", "opcode", m.Opcode, "error", err)
	}
}

// dispatchDesktopManager decodes org_kde_plasma_virtual_desktop_management events.
func (b *Backend) dispatchDesktopManager(m *wayland.Message) {
	switch m.Opcode {
	case vdmEvDesktopCreated:
		id := m.String()
		position := m.Uint()
		if m.Err() == nil {
			b.desktopCreated(id, int(position))
		}
	case vdmEvDesktopRemoved:
		if id := m.String(); m.Err() == nil {
			b.desktopRemoved(id)
		}
	}
}

// dispatchDesktop decodes org_kde_plasma_virtual_desktop events.
func (b *Backend) dispatchDesktop(id string, m *wayland.Message) {
	switch m.Opcode {
	case vdEvName:
		if name := m.String(); m.Err() == nil {
			b.desktopNameChanged(id, name)
		}
	case vdEvActivated:
		b.desktopActivated(id)
	}
}

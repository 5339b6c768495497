// Package wlr implements the window backend for compositors that speak
// zwlr_foreign_toplevel_manager_v1 (sway, Hyprland, labwc, Wayfire, ...).
//
// The protocol has no stable window identity, no stacking order and no
// virtual desktops. Windows are identified by the decimal protocol object id
// of their handle, which is unique for the lifetime of the connection.
package wlr

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/wayland"
	"github.com/1broseidon/dockwin/internal/windowstore"
)

// Name is the backend name reported to consumers.
const Name = "wlr"

type record = windowstore.Record[uint32]

// pending collects what changed on a handle since its last done event.
type pending struct {
	title, state, active bool
	wasVisible           bool
}

// Backend is the foreign-toplevel adapter.
type Backend struct {
	comp     compositor
	register func(handle uint32)
	opts     platform.Options
	logger   *slog.Logger

	windows *windowstore.Store[uint32]
	pending map[uint32]*pending
	active  uint32

	showingDesktop   bool
	activeBeforeShow uint32

	finishedOnce bool
}

var _ platform.Backend = (*Backend)(nil)

// Available reports whether the compositor advertises the toplevel manager.
func Available(reg *wayland.Registry) bool {
	_, ok := reg.Find(ManagerInterface)
	return ok
}

// New binds the toplevel manager and the first seat, then performs the
// initial roundtrip.
func New(conn *wayland.Conn, reg *wayland.Registry, opts platform.Options) (*Backend, error) {
	g, ok := reg.Find(ManagerInterface)
	if !ok {
		return nil, fmt.Errorf("wlr: %s not advertised", ManagerInterface)
	}

	b := newBackend(nil, opts)
	wire := &wireCompositor{conn: conn, b: b}
	b.comp = wire
	b.register = wire.register

	if sg, ok := reg.Find(SeatInterface); ok {
		seat, _, err := reg.Bind(sg, seatMaxVersion, wayland.DispatcherFunc(func(*wayland.Message) {}))
		if err != nil {
			return nil, fmt.Errorf("wlr: %w", err)
		}
		wire.seat = seat
	} else {
		b.logger.Info("wlr: no seat advertised; activate disabled")
	}

	id, version, err := reg.Bind(g, managerMaxVersion, wayland.DispatcherFunc(b.dispatchManager))
	if err != nil {
		return nil, fmt.Errorf("wlr: %w", err)
	}
	wire.manager = id

	if err := conn.Roundtrip(); err != nil {
		return nil, fmt.Errorf("wlr: initial roundtrip: %w", err)
	}

	b.logger.Info("wlr backend ready", "version", version, "windows", b.windows.Len())
	return b, nil
}

func newBackend(comp compositor, opts platform.Options) *Backend {
	opts = opts.Normalize()
	return &Backend{
		comp:    comp,
		opts:    opts,
		logger:  opts.Logger,
		windows: windowstore.New[uint32](),
		pending: make(map[uint32]*pending),
	}
}

// Name returns "wlr".
func (b *Backend) Name() string { return Name }

// Capabilities reports no stacking order, desktops or activities.
func (b *Backend) Capabilities() platform.Capabilities { return platform.Capabilities{} }

// Close asks the compositor to stop sending toplevel events.
func (b *Backend) Close() error {
	if !b.finishedOnce {
		b.comp.stop()
	}
	return nil
}

func windowID(handle uint32) platform.WindowID {
	return platform.WindowID(strconv.FormatUint(uint64(handle), 10))
}

func (b *Backend) lookup(id platform.WindowID) (*record, bool) {
	n, err := strconv.ParseUint(string(id), 10, 32)
	if err != nil {
		return nil, false
	}
	return b.windows.Get(uint32(n))
}

func (b *Backend) visible(rec *record) bool {
	return rec.Initialized && !b.opts.IsSelf(rec.AppID)
}

func (b *Backend) view(rec *record) platform.Window {
	w := rec.Snapshot()
	w.Active = b.active != 0 && b.active == rec.Key
	return w
}

func (b *Backend) publishActive() {
	id := platform.NoWindow
	if rec, ok := b.windows.Get(b.active); ok && rec.Initialized {
		id = rec.ID
	}
	b.opts.Publish(platform.Event{Kind: platform.ActiveWindowChanged, WindowID: id})
}

// batch returns the change set for handle, opening one if needed.
func (b *Backend) batch(rec *record) *pending {
	p, ok := b.pending[rec.Key]
	if !ok {
		p = &pending{wasVisible: b.visible(rec)}
		b.pending[rec.Key] = p
	}
	return p
}

// --- lifecycle ---

func (b *Backend) toplevelCreated(handle uint32) {
	rec := b.windows.Create(handle)
	rec.ID = windowID(handle)
	delete(b.pending, handle)
}

func (b *Backend) finished() {
	b.finishedOnce = true
	b.logger.Info("wlr: compositor finished the toplevel manager")
}

func (b *Backend) done(handle uint32) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}
	p := b.pending[handle]
	delete(b.pending, handle)

	if !rec.Initialized {
		rec.Initialized = true
		if b.visible(rec) {
			b.opts.Publish(platform.WindowEvent(platform.WindowAdded, b.view(rec)))
		}
		if b.active == handle {
			b.publishActive()
		}
		return
	}
	if p == nil {
		return
	}

	isVisible := b.visible(rec)
	switch {
	case isVisible && !p.wasVisible:
		b.opts.Publish(platform.WindowEvent(platform.WindowAdded, b.view(rec)))
	case !isVisible && p.wasVisible:
		b.opts.Publish(platform.Event{Kind: platform.WindowRemoved, WindowID: rec.ID})
	case isVisible:
		if p.title {
			b.opts.Publish(platform.WindowEvent(platform.WindowTitleChanged, b.view(rec)))
		}
		if p.state {
			b.opts.Publish(platform.WindowEvent(platform.WindowStateChanged, b.view(rec)))
		}
	}
	if p.active {
		b.publishActive()
	}
}

func (b *Backend) closed(handle uint32) {
	rec, ok := b.windows.Remove(handle)
	if !ok {
		return
	}
	delete(b.pending, handle)
	b.comp.destroy(handle)

	if b.visible(rec) {
		b.opts.Publish(platform.Event{Kind: platform.WindowRemoved, WindowID: rec.ID})
	}
	if b.activeBeforeShow == handle {
		b.activeBeforeShow = 0
	}
	if b.active == handle {
		b.active = 0
		if rec.Initialized {
			b.publishActive()
		}
	}
}

// --- properties, committed on done ---

func (b *Backend) titleChanged(handle uint32, title string) {
	rec, ok := b.windows.Get(handle)
	if !ok || rec.Title == title {
		return
	}
	b.batch(rec).title = true
	rec.Title = title
}

func (b *Backend) appIDChanged(handle uint32, raw string) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}
	appID := raw
	if !b.opts.IsSelf(raw) {
		appID = b.opts.Catalog.Correct(raw)
	}
	if rec.AppID == appID {
		return
	}
	b.batch(rec).state = true
	rec.AppID = appID
}

// stateChanged replaces the window's flags with the ones in states. A
// minimized window is never reported as maximized, fullscreen or active.
func (b *Backend) stateChanged(handle uint32, states []uint32) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}

	var minimized, maximized, fullscreen, activated bool
	for _, s := range states {
		switch s {
		case stateMinimized:
			minimized = true
		case stateMaximized:
			maximized = true
		case stateFullscreen:
			fullscreen = true
		case stateActivated:
			activated = true
		}
	}
	if minimized {
		maximized, fullscreen, activated = false, false, false
	}

	p := b.batch(rec)
	if rec.Minimized != minimized || rec.Maximized != maximized || rec.Fullscreen != fullscreen {
		p.state = true
	}
	rec.Minimized = minimized
	rec.Maximized = maximized
	rec.Fullscreen = fullscreen

	switch {
	case activated && b.active != handle:
		b.active = handle
		p.active = true
	case !activated && b.active == handle:
		b.active = 0
		p.active = true
	}
}

// --- queries ---

// Windows returns the listed windows in mapping order.
func (b *Backend) Windows() []platform.Window {
	var out []platform.Window
	for _, rec := range b.windows.All() {
		if b.visible(rec) {
			out = append(out, b.view(rec))
		}
	}
	return out
}

// Window returns one listed window.
func (b *Backend) Window(id platform.WindowID) (platform.Window, bool) {
	rec, ok := b.lookup(id)
	if !ok || !b.visible(rec) {
		return platform.Window{}, false
	}
	return b.view(rec), true
}

// ActiveWindow returns the active window or NoWindow.
func (b *Backend) ActiveWindow() platform.WindowID {
	rec, ok := b.windows.Get(b.active)
	if !ok || !rec.Initialized {
		return platform.NoWindow
	}
	return rec.ID
}

// StackingOrder is not exposed by this protocol.
func (b *Backend) StackingOrder() []platform.WindowID { return nil }

// Desktops is always empty: the protocol has no virtual desktops.
func (b *Backend) Desktops() []platform.Desktop { return nil }

// NumberOfDesktops is always 0.
func (b *Backend) NumberOfDesktops() int { return 0 }

// CurrentDesktop is always "".
func (b *Backend) CurrentDesktop() string { return "" }

// ShowingDesktop reports whether a show-desktop cycle is active.
func (b *Backend) ShowingDesktop() bool { return b.showingDesktop }

// --- commands ---

// ActivateWindow activates (and un-minimizes) a window through the bound seat.
func (b *Backend) ActivateWindow(id platform.WindowID) {
	if rec, ok := b.lookup(id); ok {
		b.activate(rec.Key)
	}
}

func (b *Backend) activate(handle uint32) {
	if !b.comp.activate(handle) {
		b.logger.Debug("wlr: activate ignored without a seat", "window", handle)
	}
}

// MinimizeWindow minimizes a window.
func (b *Backend) MinimizeWindow(id platform.WindowID) {
	if rec, ok := b.lookup(id); ok {
		b.comp.minimize(rec.Key)
	}
}

// CloseWindow asks a window to close.
func (b *Backend) CloseWindow(id platform.WindowID) {
	if rec, ok := b.lookup(id); ok {
		b.comp.closeToplevel(rec.Key)
	}
}

// SetCurrentDesktop is a no-op.
func (b *Backend) SetCurrentDesktop(string) {}

// SetCurrentActivity is a no-op.
func (b *Backend) SetCurrentActivity(string) {}

// ResetActiveWindow forgets the active window.
func (b *Backend) ResetActiveWindow() {
	if b.active == 0 {
		return
	}
	rec, ok := b.windows.Get(b.active)
	b.active = 0
	if ok && rec.Initialized {
		b.publishActive()
	}
}

// SetShowingDesktop minimizes (show) or restores (hide) every listed window.
// There is no desktop filter: the protocol does not say which desktop a
// window is on.
func (b *Backend) SetShowingDesktop(show bool) {
	if show == b.showingDesktop {
		return
	}
	if show {
		b.activeBeforeShow = b.active
		for _, rec := range b.windows.All() {
			if !b.visible(rec) {
				continue
			}
			rec.RestoreAfterShowDesktop = !rec.Minimized
			if !rec.Minimized {
				b.comp.minimize(rec.Key)
			}
		}
		b.showingDesktop = true
		return
	}

	for _, rec := range b.windows.All() {
		if !rec.RestoreAfterShowDesktop {
			continue
		}
		rec.RestoreAfterShowDesktop = false
		if rec.Key != b.activeBeforeShow {
			b.activate(rec.Key)
		}
	}
	// The previously active window goes last so it ends up focused.
	if rec, ok := b.windows.Get(b.activeBeforeShow); ok && b.visible(rec) {
		b.activate(rec.Key)
	}
	b.activeBeforeShow = 0
	b.showingDesktop = false
}

// Package x11 implements the window backend for X11 sessions on top of the
// EWMH root and client properties.
//
// X11 has no end-of-burst marker: all properties of a client are read in
// one pass when it appears in the client list, so records are initialized
// on creation.
package x11

import (
	"log/slog"
	"strconv"

	"github.com/1broseidon/dockwin/internal/desktops"
	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/windowstore"
)

// Name is the backend name reported to consumers.
const Name = "x11"

type record = windowstore.Record[uint32]

// server is the part of the X connection the backend talks to.
type server interface {
	ClientStacking() ([]uint32, error)
	ReadClient(win uint32) (client, error)
	ActiveWindow() uint32
	CurrentDesktop() (int, error)
	DesktopCount() (int, error)
	DesktopNames() []string

	FocusWindow(win uint32) error
	MinimizeWindow(win uint32) error
	CloseWindow(win uint32) error
	SetCurrentDesktop(desktop int) error
	PinToAllDesktops(win uint32) error
	SkipTaskbar(win uint32) error

	watch(win uint32)
}

// Backend is the EWMH adapter.
type Backend struct {
	x      server
	conn   *Connection
	opts   platform.Options
	logger *slog.Logger

	windows  *windowstore.Store[uint32]
	stacking []uint32 // front to back
	active   uint32

	desktops       *desktops.Store[int]
	showingDesktop bool
}

var _ platform.Backend = (*Backend)(nil)

// New connects to the X server and reads the initial state.
func New(opts platform.Options) (*Backend, error) {
	conn, err := NewConnection()
	if err != nil {
		return nil, err
	}
	if err := conn.watchRoot(); err != nil {
		conn.Close()
		return nil, err
	}
	b := newBackend(conn, opts)
	b.conn = conn
	b.sync()
	b.logger.Info("x11 backend ready", "windows", b.windows.Len(), "desktops", b.desktops.Len())
	return b, nil
}

func newBackend(x server, opts platform.Options) *Backend {
	opts = opts.Normalize()
	return &Backend{
		x:        x,
		opts:     opts,
		logger:   opts.Logger,
		windows:  windowstore.New[uint32](),
		desktops: desktops.New[int](),
	}
}

// Start begins delivering X events to the event loop.
func (b *Backend) Start(post func(func()), fail func(error)) {
	if b.conn != nil {
		b.conn.Start(b.handle, post, fail)
	}
}

// Name returns "x11".
func (b *Backend) Name() string { return Name }

// Capabilities reports stacking order and desktops.
func (b *Backend) Capabilities() platform.Capabilities {
	return platform.Capabilities{StackingOrder: true, VirtualDesktops: true}
}

// Close disconnects from the X server.
func (b *Backend) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}

func windowID(win uint32) platform.WindowID {
	return platform.WindowID(strconv.FormatUint(uint64(win), 10))
}

func (b *Backend) lookup(id platform.WindowID) (*record, bool) {
	n, err := strconv.ParseUint(string(id), 10, 32)
	if err != nil {
		return nil, false
	}
	return b.windows.Get(uint32(n))
}

func (b *Backend) visible(rec *record) bool {
	return !rec.SkipTaskbar && !b.opts.IsSelf(rec.AppID)
}

func (b *Backend) view(rec *record) platform.Window {
	w := rec.Snapshot()
	w.Active = b.active != 0 && b.active == rec.Key
	return w
}

func (b *Backend) publishActive() {
	id := platform.NoWindow
	if rec, ok := b.windows.Get(b.active); ok {
		id = rec.ID
	}
	b.opts.Publish(platform.Event{Kind: platform.ActiveWindowChanged, WindowID: id})
}

// handle applies one X change on the event loop.
func (b *Backend) handle(ch change) {
	if ch.destroy {
		b.removeWindow(ch.window)
		return
	}
	if _, ok := b.windows.Get(ch.window); ok {
		switch {
		case ch.geometry:
			b.refreshWindow(ch.window)
		case ch.property == "_NET_WM_NAME", ch.property == "WM_NAME",
			ch.property == "_NET_WM_STATE", ch.property == "WM_STATE",
			ch.property == "_NET_WM_DESKTOP", ch.property == "WM_CLASS":
			b.refreshWindow(ch.window)
		}
		return
	}
	switch ch.property {
	case "_NET_CLIENT_LIST_STACKING", "_NET_CLIENT_LIST":
		b.syncClients()
	case "_NET_ACTIVE_WINDOW":
		b.syncActive()
	case "_NET_CURRENT_DESKTOP", "_NET_NUMBER_OF_DESKTOPS", "_NET_DESKTOP_NAMES":
		b.syncDesktops()
	}
}

// sync reads the whole model; used at startup.
func (b *Backend) sync() {
	b.syncDesktops()
	b.syncClients()
}

func (b *Backend) syncClients() {
	wins, err := b.x.ClientStacking()
	if err != nil {
		b.logger.Debug("x11: client list unavailable", "error", err)
		return
	}

	present := make(map[uint32]bool, len(wins))
	for _, w := range wins {
		present[w] = true
	}
	for _, rec := range b.windows.All() {
		if !present[rec.Key] {
			b.removeWindow(rec.Key)
		}
	}
	for _, w := range wins {
		if _, ok := b.windows.Get(w); !ok {
			b.addWindow(w)
		}
	}

	b.stacking = b.stacking[:0]
	for i := len(wins) - 1; i >= 0; i-- {
		if _, ok := b.windows.Get(wins[i]); ok {
			b.stacking = append(b.stacking, wins[i])
		}
	}
	// The WM may have announced focus on a window before listing it.
	b.syncActive()
}

func (b *Backend) addWindow(win uint32) {
	cl, err := b.x.ReadClient(win)
	if err != nil {
		// Gone before we could read it.
		b.logger.Debug("x11: client vanished", "window", win, "error", err)
		return
	}
	b.x.watch(win)

	rec := b.windows.Create(win)
	rec.ID = windowID(win)
	cl.apply(&rec.Window)
	rec.AppID = b.correct(cl.AppID)
	rec.Initialized = true

	if b.opts.IsSelf(cl.AppID) {
		b.pinSelf(rec)
		return
	}
	if b.visible(rec) {
		b.opts.Publish(platform.WindowEvent(platform.WindowAdded, b.view(rec)))
	}
}

func (b *Backend) correct(appID string) string {
	if b.opts.IsSelf(appID) {
		return appID
	}
	return b.opts.Catalog.Correct(appID)
}

func (b *Backend) pinSelf(rec *record) {
	if !rec.OnAllDesktops {
		if err := b.x.PinToAllDesktops(rec.Key); err != nil {
			b.logger.Debug("x11: pin dock window failed", "error", err)
		}
	}
	if !rec.SkipTaskbar {
		if err := b.x.SkipTaskbar(rec.Key); err != nil {
			b.logger.Debug("x11: skip-taskbar on dock window failed", "error", err)
		}
	}
}

func (b *Backend) removeWindow(win uint32) {
	rec, ok := b.windows.Remove(win)
	if !ok {
		return
	}
	for i, w := range b.stacking {
		if w == win {
			b.stacking = append(b.stacking[:i], b.stacking[i+1:]...)
			break
		}
	}
	if b.visible(rec) {
		b.opts.Publish(platform.Event{Kind: platform.WindowRemoved, WindowID: rec.ID})
	}
	if b.active == win {
		b.active = 0
		b.publishActive()
	}
}

// refreshWindow re-reads a client and publishes what changed.
func (b *Backend) refreshWindow(win uint32) {
	rec, ok := b.windows.Get(win)
	if !ok {
		return
	}
	cl, err := b.x.ReadClient(win)
	if err != nil {
		return
	}

	before := rec.Window
	wasVisible := b.visible(rec)
	cl.apply(&rec.Window)
	rec.AppID = b.correct(cl.AppID)
	isVisible := b.visible(rec)

	switch {
	case isVisible && !wasVisible:
		b.opts.Publish(platform.WindowEvent(platform.WindowAdded, b.view(rec)))
		return
	case !isVisible && wasVisible:
		b.opts.Publish(platform.Event{Kind: platform.WindowRemoved, WindowID: rec.ID})
		return
	case !isVisible:
		return
	}

	if before.Title != rec.Title {
		b.opts.Publish(platform.WindowEvent(platform.WindowTitleChanged, b.view(rec)))
	}
	if before.Geometry != rec.Geometry {
		b.opts.Publish(platform.WindowEvent(platform.WindowGeometryChanged, b.view(rec)))
	}
	after := rec.Window
	after.Title, after.Geometry = before.Title, before.Geometry
	if after != before {
		b.opts.Publish(platform.WindowEvent(platform.WindowStateChanged, b.view(rec)))
	}
	if before.DesktopID != rec.DesktopID && before.DesktopID == b.desktops.Current() && !rec.OnAllDesktops {
		b.opts.Publish(platform.Event{Kind: platform.WindowLeftCurrentDesktop, WindowID: rec.ID})
	}
	if rec.Minimized && b.active == win {
		b.active = 0
		b.publishActive()
	}
}

func (b *Backend) syncActive() {
	win := b.x.ActiveWindow()
	if _, ok := b.windows.Get(win); !ok {
		win = 0
	}
	if win == b.active {
		return
	}
	b.active = win
	b.publishActive()
}

func (b *Backend) syncDesktops() {
	count, err := b.x.DesktopCount()
	if err != nil {
		b.logger.Debug("x11: desktop count unavailable", "error", err)
		return
	}

	before := b.desktops.Len()
	for i := before - 1; i >= count; i-- {
		b.desktops.Removed(strconv.Itoa(i))
	}
	for i := before; i < count; i++ {
		b.desktops.Created(strconv.Itoa(i), i, i)
	}
	if b.desktops.Len() != before {
		b.opts.Publish(platform.Event{Kind: platform.NumberOfDesktopsChanged, Count: b.desktops.Len()})
	}

	names := b.x.DesktopNames()
	for i := 0; i < count && i < len(names); i++ {
		id := strconv.Itoa(i)
		if b.desktops.NameChanged(id, names[i]) {
			b.opts.Publish(platform.Event{Kind: platform.DesktopNameChanged, DesktopID: id, Name: names[i]})
		}
	}

	if current, err := b.x.CurrentDesktop(); err == nil {
		id := strconv.Itoa(current)
		if b.desktops.Activated(id) {
			b.opts.Publish(platform.Event{Kind: platform.CurrentDesktopChanged, DesktopID: id})
		}
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

// Window returns one listed window by decimal XID.
func (b *Backend) Window(id platform.WindowID) (platform.Window, bool) {
	rec, ok := b.lookup(id)
	if !ok || !b.visible(rec) {
		return platform.Window{}, false
	}
	return b.view(rec), true
}

// ActiveWindow returns the active window or NoWindow.
func (b *Backend) ActiveWindow() platform.WindowID {
	if rec, ok := b.windows.Get(b.active); ok {
		return rec.ID
	}
	return platform.NoWindow
}

// StackingOrder returns the managed windows front to back.
func (b *Backend) StackingOrder() []platform.WindowID {
	out := make([]platform.WindowID, len(b.stacking))
	for i, w := range b.stacking {
		out[i] = windowID(w)
	}
	return out
}

// Desktops returns the desktops numbered from 1.
func (b *Backend) Desktops() []platform.Desktop { return b.desktops.All() }

// NumberOfDesktops returns _NET_NUMBER_OF_DESKTOPS.
func (b *Backend) NumberOfDesktops() int { return b.desktops.Len() }

// CurrentDesktop returns the current desktop id (its 0-based index).
func (b *Backend) CurrentDesktop() string { return b.desktops.Current() }

// ShowingDesktop reports whether a show-desktop cycle is active.
func (b *Backend) ShowingDesktop() bool { return b.showingDesktop }

// --- commands ---

func (b *Backend) logErr(op string, err error) {
	if err != nil {
		b.logger.Debug("x11: request failed", "op", op, "error", err)
	}
}

// ActivateWindow asks the window manager to focus and raise a window.
func (b *Backend) ActivateWindow(id platform.WindowID) {
	if rec, ok := b.lookup(id); ok {
		b.logErr("activate", b.x.FocusWindow(rec.Key))
	}
}

// MinimizeWindow iconifies a window.
func (b *Backend) MinimizeWindow(id platform.WindowID) {
	if rec, ok := b.lookup(id); ok {
		b.logErr("minimize", b.x.MinimizeWindow(rec.Key))
	}
}

// CloseWindow asks the window manager to close a window.
func (b *Backend) CloseWindow(id platform.WindowID) {
	if rec, ok := b.lookup(id); ok {
		b.logErr("close", b.x.CloseWindow(rec.Key))
	}
}

// SetCurrentDesktop requests a desktop switch; the pointer moves on the
// _NET_CURRENT_DESKTOP echo.
func (b *Backend) SetCurrentDesktop(id string) {
	n, ok := b.desktops.Handle(id)
	if !ok {
		return
	}
	b.logErr("set desktop", b.x.SetCurrentDesktop(n))
}

// SetCurrentActivity is a no-op.
func (b *Backend) SetCurrentActivity(string) {}

// ResetActiveWindow forgets the active window until the next change.
func (b *Backend) ResetActiveWindow() {
	if b.active == 0 {
		return
	}
	b.active = 0
	b.publishActive()
}

// SetShowingDesktop minimizes (show) or restores (hide) the listed windows
// on the current desktop.
func (b *Backend) SetShowingDesktop(show bool) {
	if show == b.showingDesktop {
		return
	}
	current := b.desktops.Current()
	if show {
		for _, rec := range b.windows.All() {
			if !b.visible(rec) || rec.DesktopID != current {
				continue
			}
			rec.RestoreAfterShowDesktop = !rec.Minimized
			if !rec.Minimized {
				b.logErr("minimize", b.x.MinimizeWindow(rec.Key))
			}
		}
		b.showingDesktop = true
		return
	}

	// Back to front so the top window ends up focused.
	for i := len(b.stacking) - 1; i >= 0; i-- {
		rec, ok := b.windows.Get(b.stacking[i])
		if !ok || !rec.RestoreAfterShowDesktop {
			continue
		}
		rec.RestoreAfterShowDesktop = false
		b.logErr("activate", b.x.FocusWindow(rec.Key))
	}
	for _, rec := range b.windows.All() {
		rec.RestoreAfterShowDesktop = false
	}
	b.showingDesktop = false
}

// Package plasma implements the window backend for compositors that speak
// org_kde_plasma_window_management (KWin and compatibles).
//
// Windows are identified outside this package by the uuid the compositor
// assigns; the protocol object id is the native handle and never leaks.
// Property events are buffered into the record until initial_state, after
// which the window becomes visible to consumers.
package plasma

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/1broseidon/dockwin/internal/desktops"
	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/wayland"
	"github.com/1broseidon/dockwin/internal/windowstore"
)

// Name is the backend name reported to consumers.
const Name = "plasma"

type record = windowstore.Record[uint32]

// Backend is the plasma window-management adapter.
type Backend struct {
	comp    compositor
	opts    platform.Options
	logger  *slog.Logger
	version uint32

	windows  *windowstore.Store[uint32]
	byUUID   map[string]uint32
	stacking []string
	active   uint32

	showingDesktop bool

	desktops        *desktops.Store[uint32]
	hasDesktops     bool
	currentActivity string
}

var _ platform.Backend = (*Backend)(nil)

// Available reports whether the compositor advertises the window-management global.
func Available(reg *wayland.Registry) bool {
	_, ok := reg.Find(WindowManagementInterface)
	return ok
}

// New binds the plasma globals and performs the initial roundtrip so that the
// windows and desktops existing at startup are known when New returns.
func New(conn *wayland.Conn, reg *wayland.Registry, opts platform.Options) (*Backend, error) {
	g, ok := reg.Find(WindowManagementInterface)
	if !ok {
		return nil, fmt.Errorf("plasma: %s not advertised", WindowManagementInterface)
	}

	b := newBackend(nil, opts)
	wire := &wireCompositor{conn: conn, b: b}
	b.comp = wire

	id, version, err := reg.Bind(g, windowManagementMaxVersion, wayland.DispatcherFunc(b.dispatchManager))
	if err != nil {
		return nil, fmt.Errorf("plasma: %w", err)
	}
	wire.manager = id
	b.version = version

	if vg, ok := reg.Find(VirtualDesktopsInterface); ok {
		vid, _, err := reg.Bind(vg, virtualDesktopsMaxVersion, wayland.DispatcherFunc(b.dispatchDesktopManager))
		if err != nil {
			return nil, fmt.Errorf("plasma: %w", err)
		}
		wire.vdm = vid
		b.hasDesktops = true
	} else {
		b.logger.Info("plasma: virtual desktop management not advertised; pager disabled")
	}

	// Two roundtrips: the first delivers the window/desktop announcements,
	// the second the property bursts of the objects created in response.
	for i := 0; i < 2; i++ {
		if err := conn.Roundtrip(); err != nil {
			return nil, fmt.Errorf("plasma: initial roundtrip: %w", err)
		}
	}

	b.logger.Info("plasma backend ready",
		"version", version,
		"windows", b.windows.Len(),
		"desktops", b.desktops.Len())
	return b, nil
}

func newBackend(comp compositor, opts platform.Options) *Backend {
	opts = opts.Normalize()
	return &Backend{
		comp:     comp,
		opts:     opts,
		logger:   opts.Logger,
		version:  windowManagementMaxVersion,
		windows:  windowstore.New[uint32](),
		byUUID:   make(map[string]uint32),
		desktops: desktops.New[uint32](),
	}
}

// Name returns "plasma".
func (b *Backend) Name() string { return Name }

// Capabilities reports stacking order, desktops (when advertised) and activities.
func (b *Backend) Capabilities() platform.Capabilities {
	return platform.Capabilities{
		StackingOrder:   true,
		VirtualDesktops: b.hasDesktops,
		Activities:      true,
	}
}

// Close is a no-op; the connection is owned by the caller.
func (b *Backend) Close() error { return nil }

// visible reports whether consumers may see rec.
func (b *Backend) visible(rec *record) bool {
	return rec.Initialized && !rec.SkipTaskbar && !b.opts.IsSelf(rec.AppID)
}

func (b *Backend) view(rec *record) platform.Window {
	w := rec.Snapshot()
	w.Active = b.active != 0 && b.active == rec.Key
	return w
}

func (b *Backend) publishWindow(kind platform.EventKind, rec *record) {
	b.opts.Publish(platform.WindowEvent(kind, b.view(rec)))
}

func (b *Backend) publishActive() {
	id := platform.NoWindow
	if rec, ok := b.windows.Get(b.active); ok {
		id = rec.ID
	}
	b.opts.Publish(platform.Event{Kind: platform.ActiveWindowChanged, WindowID: id})
}

// --- window lifecycle ---

func (b *Backend) windowCreated(uuid string) {
	if uuid == "" {
		return
	}
	if _, ok := b.byUUID[uuid]; ok {
		b.logger.Debug("plasma: duplicate window announcement ignored", "uuid", uuid)
		return
	}
	handle := b.comp.getWindowByUUID(uuid)
	b.track(handle, uuid)
}

// legacyWindowCreated handles the pre-uuid announcement. Compositors that
// speak version 13 or later announce every window through windowCreated too.
func (b *Backend) legacyWindowCreated(internalID uint32) {
	if b.version >= uuidWindowsSince {
		return
	}
	uuid := strconv.FormatUint(uint64(internalID), 10)
	if _, ok := b.byUUID[uuid]; ok {
		return
	}
	handle := b.comp.getWindow(internalID)
	b.track(handle, uuid)
}

func (b *Backend) track(handle uint32, uuid string) {
	rec := b.windows.Create(handle)
	rec.ID = platform.WindowID(uuid)
	b.byUUID[uuid] = handle
}

func (b *Backend) initialState(handle uint32) {
	rec, ok := b.windows.Get(handle)
	if !ok || rec.Initialized {
		return
	}
	rec.Initialized = true
	if b.visible(rec) {
		b.publishWindow(platform.WindowAdded, rec)
	}
	// Focus moved here while the window was still being described; hidden
	// windows take focus too and the previous holder has lost it.
	if b.active == handle {
		b.publishActive()
	}
}

func (b *Backend) windowClosed(handle uint32) {
	rec, ok := b.windows.Remove(handle)
	if !ok {
		return
	}
	if b.byUUID[string(rec.ID)] == handle {
		delete(b.byUUID, string(rec.ID))
	}
	b.comp.destroyWindow(handle)

	wasVisible := b.visible(rec)
	if wasVisible {
		b.opts.Publish(platform.Event{Kind: platform.WindowRemoved, WindowID: rec.ID})
	}
	if b.active == handle {
		b.active = 0
		if rec.Initialized {
			b.publishActive()
		}
	}
}

// --- per-window properties ---

func (b *Backend) titleChanged(handle uint32, title string) {
	rec, ok := b.windows.Get(handle)
	if !ok || rec.Title == title {
		return
	}
	rec.Title = title
	if b.visible(rec) {
		b.publishWindow(platform.WindowTitleChanged, rec)
	}
}

func (b *Backend) appIDChanged(handle uint32, raw string) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}
	if b.opts.IsSelf(raw) {
		// The dock must not list itself and must follow the user across desktops.
		b.comp.setState(handle, stateOnAllDesktops|stateSkipTaskbar, stateOnAllDesktops|stateSkipTaskbar)
	}
	appID := b.opts.Catalog.Correct(raw)
	if b.opts.IsSelf(raw) {
		appID = raw
	}
	if rec.AppID == appID {
		return
	}
	wasVisible := b.visible(rec)
	rec.AppID = appID
	b.publishVisibility(rec, wasVisible, platform.WindowStateChanged)
}

func (b *Backend) stateChanged(handle uint32, flags uint32) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}

	wasVisible := b.visible(rec)
	before := rec.Window
	rec.Minimized = flags&stateMinimized != 0
	rec.Maximized = flags&stateMaximized != 0
	rec.Fullscreen = flags&stateFullscreen != 0
	rec.OnAllDesktops = flags&stateOnAllDesktops != 0
	rec.DemandsAttention = flags&stateDemandsAttention != 0
	rec.SkipTaskbar = flags&stateSkipTaskbar != 0

	activeChanged := false
	if flags&stateActive != 0 && b.active != handle {
		b.active = handle
		activeChanged = true
	}
	if flags&stateMinimized != 0 && b.active == handle {
		b.active = 0
		activeChanged = true
	}

	if rec.Window != before {
		b.publishVisibility(rec, wasVisible, platform.WindowStateChanged)
	}
	if activeChanged && rec.Initialized {
		b.publishActive()
	}
}

// publishVisibility emits add/remove when a property change moved rec in or
// out of the task list, and kind otherwise.
func (b *Backend) publishVisibility(rec *record, wasVisible bool, kind platform.EventKind) {
	isVisible := b.visible(rec)
	switch {
	case isVisible && !wasVisible:
		b.publishWindow(platform.WindowAdded, rec)
	case !isVisible && wasVisible:
		b.opts.Publish(platform.Event{Kind: platform.WindowRemoved, WindowID: rec.ID})
	case isVisible:
		b.publishWindow(kind, rec)
	}
}

func (b *Backend) geometryChanged(handle uint32, r platform.Rect) {
	rec, ok := b.windows.Get(handle)
	if !ok || rec.Geometry == r {
		return
	}
	rec.Geometry = r
	if b.visible(rec) {
		b.publishWindow(platform.WindowGeometryChanged, rec)
	}
}

func (b *Backend) pidChanged(handle uint32, pid int) {
	b.windows.Update(handle, func(rec *record) { rec.PID = pid })
}

func (b *Backend) desktopEntered(handle uint32, desktopID string) {
	rec, ok := b.windows.Get(handle)
	if !ok || rec.DesktopID == desktopID {
		return
	}
	rec.DesktopID = desktopID
	if b.visible(rec) {
		b.publishWindow(platform.WindowStateChanged, rec)
	}
}

func (b *Backend) desktopLeft(handle uint32, desktopID string) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}
	if rec.DesktopID == desktopID {
		rec.DesktopID = ""
	}
	if !b.visible(rec) {
		return
	}
	if desktopID == b.desktops.Current() && !rec.OnAllDesktops {
		b.opts.Publish(platform.Event{Kind: platform.WindowLeftCurrentDesktop, WindowID: rec.ID})
	}
}

func (b *Backend) activityEntered(handle uint32, activityID string) {
	rec, ok := b.windows.Get(handle)
	if !ok || rec.ActivityID == activityID {
		return
	}
	rec.ActivityID = activityID
	if b.visible(rec) {
		b.publishWindow(platform.WindowStateChanged, rec)
	}
}

func (b *Backend) activityLeft(handle uint32, activityID string) {
	rec, ok := b.windows.Get(handle)
	if !ok {
		return
	}
	if rec.ActivityID == activityID {
		rec.ActivityID = ""
	}
	if b.visible(rec) && b.currentActivity != "" && activityID == b.currentActivity {
		b.opts.Publish(platform.Event{Kind: platform.WindowLeftCurrentActivity, WindowID: rec.ID})
	}
}

// stackingOrderChanged replaces the stacking order with the parsed list.
func (b *Backend) stackingOrderChanged(uuids string) {
	parts := strings.Split(uuids, ";")
	order := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			order = append(order, p)
		}
	}
	b.stacking = order
}

// --- queries ---

// Windows returns the windows shown in the task list, in mapping order.
func (b *Backend) Windows() []platform.Window {
	var out []platform.Window
	for _, rec := range b.windows.All() {
		if b.visible(rec) {
			out = append(out, b.view(rec))
		}
	}
	return out
}

// Window returns one visible window by uuid.
func (b *Backend) Window(id platform.WindowID) (platform.Window, bool) {
	rec, ok := b.lookup(id)
	if !ok || !b.visible(rec) {
		return platform.Window{}, false
	}
	return b.view(rec), true
}

// ActiveWindow returns the uuid of the active window or NoWindow.
func (b *Backend) ActiveWindow() platform.WindowID {
	rec, ok := b.windows.Get(b.active)
	if !ok || !rec.Initialized {
		return platform.NoWindow
	}
	return rec.ID
}

// StackingOrder returns the last stacking order sent by the compositor.
func (b *Backend) StackingOrder() []platform.WindowID {
	out := make([]platform.WindowID, len(b.stacking))
	for i, u := range b.stacking {
		out[i] = platform.WindowID(u)
	}
	return out
}

// ShowingDesktop reports whether a synthesized show-desktop cycle is active.
func (b *Backend) ShowingDesktop() bool { return b.showingDesktop }

func (b *Backend) lookup(id platform.WindowID) (*record, bool) {
	handle, ok := b.byUUID[string(id)]
	if !ok {
		return nil, false
	}
	return b.windows.Get(handle)
}

// --- commands ---

// ActivateWindow asks the compositor to activate (and un-minimize) a window.
func (b *Backend) ActivateWindow(id platform.WindowID) {
	rec, ok := b.lookup(id)
	if !ok {
		return
	}
	b.activate(rec)
}

func (b *Backend) activate(rec *record) {
	b.comp.setState(rec.Key, stateActive|stateMinimized, stateActive)
}

// MinimizeWindow asks the compositor to minimize a window.
func (b *Backend) MinimizeWindow(id platform.WindowID) {
	rec, ok := b.lookup(id)
	if !ok {
		return
	}
	b.comp.setState(rec.Key, stateMinimized, stateMinimized)
}

// CloseWindow asks the compositor to close a window.
func (b *Backend) CloseWindow(id platform.WindowID) {
	rec, ok := b.lookup(id)
	if !ok {
		return
	}
	b.comp.closeWindow(rec.Key)
}

// ResetActiveWindow forgets the active window, e.g. after a click on the dock
// itself, so the next click on that window's icon activates it again.
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

// SetCurrentActivity records the activity reported by the activity manager.
func (b *Backend) SetCurrentActivity(id string) {
	b.currentActivity = id
}

// SetShowingDesktop minimizes (show) or restores (hide) the ordinary windows
// on the current desktop. The compositor's own show-desktop mode is not used
// because it would hide the dock as well.
func (b *Backend) SetShowingDesktop(show bool) {
	if show == b.showingDesktop {
		return
	}
	if show {
		current := b.desktops.Current()
		for _, rec := range b.windows.All() {
			if !b.visible(rec) || rec.DesktopID != current {
				continue
			}
			rec.RestoreAfterShowDesktop = !rec.Minimized
			if !rec.Minimized {
				b.comp.setState(rec.Key, stateMinimized, stateMinimized)
			}
		}
		b.showingDesktop = true
		return
	}

	for _, rec := range b.restoreOrder() {
		rec.RestoreAfterShowDesktop = false
		b.activate(rec)
	}
	b.showingDesktop = false
}

// restoreOrder returns the windows to re-activate, back to front, so the
// window that was on top ends up active.
func (b *Backend) restoreOrder() []*record {
	var pending []*record
	for _, rec := range b.windows.All() {
		if rec.RestoreAfterShowDesktop {
			pending = append(pending, rec)
		}
	}

	rank := make(map[string]int, len(b.stacking))
	for i, u := range b.stacking {
		rank[u] = i
	}
	// Windows missing from the stacking order go first, in mapping order;
	// the rest follow from the back of the stack (last entry) to the front.
	var unranked, ranked []*record
	for _, rec := range pending {
		if _, ok := rank[string(rec.ID)]; ok {
			ranked = append(ranked, rec)
		} else {
			unranked = append(unranked, rec)
		}
	}
	sortByRankDesc(ranked, rank)
	return append(unranked, ranked...)
}

func sortByRankDesc(recs []*record, rank map[string]int) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && rank[string(recs[j].ID)] > rank[string(recs[j-1].ID)]; j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

package x11

import (
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/dockwin/internal/platform"
)

type fakeServer struct {
	stacking []uint32
	clients  map[uint32]client
	active   uint32
	current  int
	count    int
	names    []string

	focused   []uint32
	minimized []uint32
	closed    []uint32
	switched  []int
	pinned    []uint32
	skipped   []uint32
	watched   []uint32
}

func newFakeServer() *fakeServer {
	return &fakeServer{clients: map[uint32]client{}, count: 2}
}

func (f *fakeServer) ClientStacking() ([]uint32, error) {
	return append([]uint32(nil), f.stacking...), nil
}

func (f *fakeServer) ReadClient(win uint32) (client, error) {
	cl, ok := f.clients[win]
	if !ok {
		return client{}, errors.New("BadWindow")
	}
	return cl, nil
}

func (f *fakeServer) ActiveWindow() uint32 { return f.active }
func (f *fakeServer) CurrentDesktop() (int, error) { return f.current, nil }
func (f *fakeServer) DesktopCount() (int, error) { return f.count, nil }
func (f *fakeServer) DesktopNames() []string { return f.names }
func (f *fakeServer) FocusWindow(w uint32) error { f.focused = append(f.focused, w); return nil }
func (f *fakeServer) MinimizeWindow(w uint32) error { f.minimized = append(f.minimized, w); return nil }
func (f *fakeServer) CloseWindow(w uint32) error { f.closed = append(f.closed, w); return nil }
func (f *fakeServer) SetCurrentDesktop(d int) error { f.switched = append(f.switched, d); return nil }
func (f *fakeServer) PinToAllDesktops(w uint32) error { f.pinned = append(f.pinned, w); return nil }
func (f *fakeServer) SkipTaskbar(w uint32) error { f.skipped = append(f.skipped, w); return nil }
func (f *fakeServer) watch(w uint32) { f.watched = append(f.watched, w) }

func (f *fakeServer) mapWindow(win uint32, cl client) {
	f.clients[win] = cl
	f.stacking = append(f.stacking, win)
}

type harness struct {
	b      *Backend
	x      *fakeServer
	events []platform.Event
}

func newHarness(t *testing.T, x *fakeServer) *harness {
	t.Helper()
	h := &harness{x: x}
	h.b = newBackend(x, platform.Options{
		SelfAppID: "dockwin",
		Publish:   func(e platform.Event) { h.events = append(h.events, e) },
	})
	h.b.sync()
	return h
}

func (h *harness) kinds() []platform.EventKind {
	out := make([]platform.EventKind, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestParseStates(t *testing.T) {
	tests := []struct {
		name   string
		states []string
		want   flags
	}{
		{"empty", nil, flags{}},
		{"hidden", []string{"_NET_WM_STATE_HIDDEN"}, flags{minimized: true}},
		{"half maximized", []string{"_NET_WM_STATE_MAXIMIZED_HORZ"}, flags{}},
		{"maximized", []string{"_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ"}, flags{maximized: true}},
		{"skip and sticky", []string{"_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_STICKY"}, flags{skipTaskbar: true, sticky: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseStates(tt.states); got != tt.want {
				t.Fatalf("parseStates(%v) = %+v, want %+v", tt.states, got, tt.want)
			}
		})
	}
}

func TestListable(t *testing.T) {
	tests := []struct {
		types []string
		want  bool
	}{
		{nil, true},
		{[]string{"_NET_WM_WINDOW_TYPE_NORMAL"}, true},
		{[]string{"_NET_WM_WINDOW_TYPE_DOCK"}, false},
		{[]string{"_KDE_NET_WM_WINDOW_TYPE_OVERRIDE", "_NET_WM_WINDOW_TYPE_NORMAL"}, true},
		{[]string{"_NET_WM_WINDOW_TYPE_UTILITY"}, false},
	}
	for _, tt := range tests {
		if got := listable(tt.types); got != tt.want {
			t.Errorf("listable(%v) = %v, want %v", tt.types, got, tt.want)
		}
	}
}

func TestSync_InitialState(t *testing.T) {
	x := newFakeServer()
	x.names = []string{"Main", "Web"}
	x.current = 1
	x.mapWindow(10, client{Title: "xterm", AppID: "XTerm"})
	x.mapWindow(11, client{Title: "panel", AppID: "panel", Types: []string{"_NET_WM_WINDOW_TYPE_DOCK"}})
	x.mapWindow(12, client{Title: "dock", AppID: "dockwin"})
	x.active = 10

	h := newHarness(t, x)

	wins := h.b.Windows()
	if len(wins) != 1 || wins[0].ID != "10" || !wins[0].Active {
		t.Fatalf("Windows() = %+v", wins)
	}
	if got := h.b.StackingOrder(); !reflect.DeepEqual(got, []platform.WindowID{"12", "11", "10"}) {
		t.Fatalf("StackingOrder() = %v", got)
	}
	want := []platform.Desktop{{ID: "0", Number: 1, Name: "Main"}, {ID: "1", Number: 2, Name: "Web"}}
	if got := h.b.Desktops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Desktops() = %+v", got)
	}
	if h.b.CurrentDesktop() != "1" {
		t.Fatalf("CurrentDesktop() = %q", h.b.CurrentDesktop())
	}
	if !reflect.DeepEqual(x.pinned, []uint32{12}) || !reflect.DeepEqual(x.skipped, []uint32{12}) {
		t.Fatalf("dock window not pinned: pinned=%v skipped=%v", x.pinned, x.skipped)
	}
}

func TestClientList_AddAndRemove(t *testing.T) {
	x := newFakeServer()
	h := newHarness(t, x)
	h.events = nil

	x.mapWindow(20, client{Title: "a"})
	x.mapWindow(21, client{Title: "gone before read"})
	delete(x.clients, 21)
	h.b.handle(change{property: "_NET_CLIENT_LIST_STACKING"})

	if got := h.kinds(); !reflect.DeepEqual(got, []platform.EventKind{platform.WindowAdded}) {
		t.Fatalf("events = %v", got)
	}

	x.stacking = nil
	h.events = nil
	h.b.handle(change{property: "_NET_CLIENT_LIST_STACKING"})
	h.b.handle(change{window: 20, destroy: true})
	if got := h.kinds(); !reflect.DeepEqual(got, []platform.EventKind{platform.WindowRemoved}) {
		t.Fatalf("events = %v", got)
	}
}

func TestRefreshWindow_PublishesChanges(t *testing.T) {
	x := newFakeServer()
	x.mapWindow(30, client{Title: "one", AppID: "kate"})
	h := newHarness(t, x)
	h.events = nil

	x.clients[30] = client{Title: "two", AppID: "kate", Geometry: platform.Rect{Width: 5, Height: 5}}
	h.b.handle(change{window: 30, property: "_NET_WM_NAME"})

	want := []platform.EventKind{platform.WindowTitleChanged, platform.WindowGeometryChanged}
	if got := h.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	h.events = nil
	x.clients[30] = client{Title: "two", AppID: "kate", Geometry: platform.Rect{Width: 5, Height: 5}, Desktop: 1}
	h.b.handle(change{window: 30, property: "_NET_WM_DESKTOP"})
	want = []platform.EventKind{platform.WindowStateChanged, platform.WindowLeftCurrentDesktop}
	if got := h.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	h.events = nil
	h.b.handle(change{window: 30, property: "_NET_WM_ICON"})
	if len(h.events) != 0 {
		t.Fatalf("unrelated property published %v", h.kinds())
	}
}

func TestShowDesktop_RoundTrip(t *testing.T) {
	x := newFakeServer()
	x.mapWindow(1, client{AppID: "a", States: []string{"_NET_WM_STATE_HIDDEN"}})
	x.mapWindow(2, client{AppID: "b"})
	x.mapWindow(3, client{AppID: "c", Desktop: 1})
	x.mapWindow(4, client{AppID: "d"})
	h := newHarness(t, x)

	h.b.SetShowingDesktop(true)
	if !reflect.DeepEqual(x.minimized, []uint32{2, 4}) {
		t.Fatalf("minimized = %v, want [2 4]", x.minimized)
	}

	h.b.SetShowingDesktop(false)
	// Stacking is 4 on top of 2: restore 2 first so 4 ends up focused.
	if !reflect.DeepEqual(x.focused, []uint32{2, 4}) {
		t.Fatalf("focused = %v, want [2 4]", x.focused)
	}
	if h.b.ShowingDesktop() {
		t.Fatal("ShowingDesktop() still true")
	}
}

func TestDesktops_Changes(t *testing.T) {
	x := newFakeServer()
	h := newHarness(t, x)
	h.events = nil

	x.count = 3
	x.names = []string{"", "", "Chat"}
	h.b.handle(change{property: "_NET_NUMBER_OF_DESKTOPS"})
	h.b.handle(change{property: "_NET_CURRENT_DESKTOP"})

	want := []platform.EventKind{platform.NumberOfDesktopsChanged, platform.DesktopNameChanged}
	if got := h.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	h.b.SetCurrentDesktop("2")
	h.b.SetCurrentDesktop("9")
	if !reflect.DeepEqual(x.switched, []int{2}) {
		t.Fatalf("switched = %v", x.switched)
	}
	if h.b.CurrentDesktop() != "0" {
		t.Fatalf("CurrentDesktop() = %q before the echo", h.b.CurrentDesktop())
	}
}

func TestActiveWindow_FollowsRoot(t *testing.T) {
	x := newFakeServer()
	x.mapWindow(5, client{AppID: "a"})
	x.mapWindow(6, client{AppID: "b"})
	h := newHarness(t, x)
	h.events = nil

	x.active = 6
	h.b.handle(change{property: "_NET_ACTIVE_WINDOW"})
	h.b.handle(change{property: "_NET_ACTIVE_WINDOW"})
	x.active = 999
	h.b.handle(change{property: "_NET_ACTIVE_WINDOW"})

	var got []platform.WindowID
	for _, e := range h.events {
		got = append(got, e.WindowID)
	}
	if !reflect.DeepEqual(got, []platform.WindowID{"6", platform.NoWindow}) {
		t.Fatalf("active changes = %v", got)
	}
}

func TestActiveWindow_AnnouncedBeforeClientList(t *testing.T) {
	x := newFakeServer()
	x.mapWindow(5, client{AppID: "a"})
	h := newHarness(t, x)
	h.events = nil

	// A window mapped focused: _NET_ACTIVE_WINDOW arrives first.
	x.active = 40
	h.b.handle(change{property: "_NET_ACTIVE_WINDOW"})
	x.mapWindow(40, client{AppID: "b"})
	h.b.handle(change{property: "_NET_CLIENT_LIST_STACKING"})

	if got := h.b.ActiveWindow(); got != "40" {
		t.Fatalf("ActiveWindow() = %q, want 40", got)
	}
	want := []platform.EventKind{platform.WindowAdded, platform.ActiveWindowChanged}
	if got := h.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

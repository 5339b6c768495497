package platform

// WindowID is a platform-neutral window identifier. Backends choose the
// string form: a compositor uuid, a protocol object id or an X11 XID.
type WindowID string

// NoWindow is the WindowID reported when no window is active.
const NoWindow WindowID = ""

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Window is a read-only snapshot of one top-level window record.
type Window struct {
	ID               WindowID `json:"id"`
	Title            string   `json:"title"`
	AppID            string   `json:"app_id"`
	PID              int      `json:"pid,omitempty"`
	Geometry         Rect     `json:"geometry"`
	DesktopID        string   `json:"desktop_id,omitempty"`
	ActivityID       string   `json:"activity_id,omitempty"`
	Minimized        bool     `json:"minimized"`
	Maximized        bool     `json:"maximized"`
	Fullscreen       bool     `json:"fullscreen"`
	SkipTaskbar      bool     `json:"skip_taskbar"`
	OnAllDesktops    bool     `json:"on_all_desktops"`
	DemandsAttention bool     `json:"demands_attention"`
	Active           bool     `json:"active"`
	MappingOrder     uint64   `json:"mapping_order"`
}

// Desktop is a read-only snapshot of one virtual desktop.
type Desktop struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// Capabilities reports what the active backend can provide.
type Capabilities struct {
	StackingOrder   bool `json:"stacking_order"`
	VirtualDesktops bool `json:"virtual_desktops"`
	Activities      bool `json:"activities"`
}

// Backend abstracts one windowing-system protocol family. All methods must be
// called from the event loop goroutine that dispatches the backend's input.
//
// Commands are requests: their effect is only observable later through
// published events, and an unknown WindowID is ignored.
type Backend interface {
	Name() string
	Capabilities() Capabilities

	Windows() []Window
	Window(id WindowID) (Window, bool)
	ActiveWindow() WindowID
	StackingOrder() []WindowID

	Desktops() []Desktop
	NumberOfDesktops() int
	CurrentDesktop() string
	ShowingDesktop() bool

	ActivateWindow(id WindowID)
	MinimizeWindow(id WindowID)
	CloseWindow(id WindowID)
	SetCurrentDesktop(id string)
	SetShowingDesktop(show bool)
	ResetActiveWindow()
	SetCurrentActivity(id string)

	Close() error
}

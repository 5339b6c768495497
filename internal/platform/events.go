package platform

// EventKind names a published state change.
type EventKind string

const (
	WindowAdded               EventKind = "window_added"
	WindowRemoved             EventKind = "window_removed"
	WindowStateChanged        EventKind = "window_state_changed"
	WindowGeometryChanged     EventKind = "window_geometry_changed"
	WindowTitleChanged        EventKind = "window_title_changed"
	ActiveWindowChanged       EventKind = "active_window_changed"
	WindowLeftCurrentDesktop  EventKind = "window_left_current_desktop"
	WindowLeftCurrentActivity EventKind = "window_left_current_activity"
	CurrentDesktopChanged     EventKind = "current_desktop_changed"
	NumberOfDesktopsChanged   EventKind = "number_of_desktops_changed"
	DesktopNameChanged        EventKind = "desktop_name_changed"
)

// Event is one published notification. Only the fields relevant to Kind are set:
//
//	WindowAdded, WindowStateChanged, WindowGeometryChanged, WindowTitleChanged: Window, WindowID
//	WindowRemoved, WindowLeftCurrentDesktop, WindowLeftCurrentActivity: WindowID
//	ActiveWindowChanged: WindowID (NoWindow when cleared)
//	CurrentDesktopChanged: DesktopID
//	NumberOfDesktopsChanged: Count
//	DesktopNameChanged: DesktopID, Name
type Event struct {
	Kind      EventKind `json:"kind"`
	Window    *Window   `json:"window,omitempty"`
	WindowID  WindowID  `json:"window_id,omitempty"`
	DesktopID string    `json:"desktop_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Count     int       `json:"count,omitempty"`
}

// Publisher receives events from a backend, in the order they occur.
type Publisher func(Event)

// WindowEvent builds an event carrying a copy of w.
func WindowEvent(kind EventKind, w Window) Event {
	return Event{Kind: kind, Window: &w, WindowID: w.ID}
}

package mcp

import "github.com/1broseidon/dockwin/internal/platform"

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Backend        string `json:"backend"`
	Reduced        bool   `json:"reduced"`
	WindowCount    int    `json:"window_count"`
	DesktopCount   int    `json:"desktop_count"`
	CurrentDesktop string `json:"current_desktop,omitempty"`
	ActiveWindow   string `json:"active_window,omitempty"`
	ShowingDesktop bool   `json:"showing_desktop"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	AppID          string `json:"app_id,omitempty" jsonschema:"Only list windows of this application id (case-insensitive)"`
	CurrentDesktop bool   `json:"current_desktop,omitempty" jsonschema:"Only list windows on the current virtual desktop (or on all desktops)"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []platform.Window `json:"windows"`
	Active  string            `json:"active,omitempty"`
	Count   int               `json:"count"`
}

// ListDesktopsInput is the input for the list_desktops tool.
type ListDesktopsInput struct{}

// ListDesktopsOutput is the output for the list_desktops tool.
type ListDesktopsOutput struct {
	Desktops []platform.Desktop `json:"desktops"`
	Current  string             `json:"current,omitempty"`
}

// WindowInput addresses one window.
type WindowInput struct {
	WindowID string `json:"window_id" jsonschema:"Window id as returned by list_windows"`
}

// SwitchDesktopInput is the input for the switch_desktop tool.
type SwitchDesktopInput struct {
	DesktopID string `json:"desktop_id,omitempty" jsonschema:"Desktop id as returned by list_desktops"`
	Number    int    `json:"number,omitempty" jsonschema:"1-based desktop number, used when desktop_id is empty"`
}

// ShowDesktopInput is the input for the show_desktop tool.
type ShowDesktopInput struct {
	Show bool `json:"show" jsonschema:"true minimizes the windows on the current desktop; false restores them"`
}

// ActionOutput reports a request that was handed to the window system. The
// effect shows up later in list_windows.
type ActionOutput struct {
	Requested string `json:"requested"`
	Target    string `json:"target,omitempty"`
}

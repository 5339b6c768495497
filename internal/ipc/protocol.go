package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/dockwin/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus         CommandType = "GET_STATUS"
	CommandListWindows       CommandType = "LIST_WINDOWS"
	CommandListDesktops      CommandType = "LIST_DESKTOPS"
	CommandActivateWindow    CommandType = "ACTIVATE_WINDOW"
	CommandToggleWindow      CommandType = "TOGGLE_WINDOW"
	CommandMinimizeWindow    CommandType = "MINIMIZE_WINDOW"
	CommandCloseWindow       CommandType = "CLOSE_WINDOW"
	CommandSetCurrentDesktop CommandType = "SET_CURRENT_DESKTOP"
	CommandSetShowingDesktop CommandType = "SET_SHOWING_DESKTOP"
	CommandResetActiveWindow CommandType = "RESET_ACTIVE_WINDOW"
	CommandSubscribe         CommandType = "SUBSCRIBE"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
	// StatusEvent marks the lines of a SUBSCRIBE stream after the first.
	StatusEvent = "EVENT"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK", "ERROR" or "EVENT"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Backend        string                `json:"backend"`
	Reduced        bool                  `json:"reduced"`
	Capabilities   platform.Capabilities `json:"capabilities"`
	WindowCount    int                   `json:"window_count"`
	DesktopCount   int                   `json:"desktop_count"`
	CurrentDesktop string                `json:"current_desktop,omitempty"`
	ActiveWindow   platform.WindowID     `json:"active_window,omitempty"`
	ShowingDesktop bool                  `json:"showing_desktop"`
	UptimeSeconds  int64                 `json:"uptime_seconds"`
	DaemonRunning  bool                  `json:"daemon_running"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows  []platform.Window   `json:"windows"`
	Active   platform.WindowID   `json:"active,omitempty"`
	Stacking []platform.WindowID `json:"stacking,omitempty"`
}

// DesktopsData represents the data returned by LIST_DESKTOPS
type DesktopsData struct {
	Desktops []platform.Desktop `json:"desktops"`
	Current  string             `json:"current,omitempty"`
}

// WindowPayload addresses one window.
type WindowPayload struct {
	WindowID platform.WindowID `json:"window_id"`
}

type DesktopPayload struct {
	DesktopID string `json:"desktop_id"`
}

type ShowDesktopPayload struct {
	Show bool `json:"show"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	return newDataResponse(StatusOK, data)
}

// NewEventResponse wraps one published event for a SUBSCRIBE stream.
func NewEventResponse(ev platform.Event) (*Response, error) {
	return newDataResponse(StatusEvent, ev)
}

func newDataResponse(status string, data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: status,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/platform"
)

const (
	ServerName    = "dockwin"
	ServerVersion = "0.1.0"
)

// daemonClient is the IPC surface the tools use.
type daemonClient interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() (*ipc.WindowsData, error)
	ListDesktops() (*ipc.DesktopsData, error)
	ActivateWindow(id platform.WindowID) error
	ToggleWindow(id platform.WindowID) error
	MinimizeWindow(id platform.WindowID) error
	CloseWindow(id platform.WindowID) error
	SetCurrentDesktop(id string) error
	SetShowingDesktop(show bool) error
}

// Server is the MCP server exposing the dock's window model.
type Server struct {
	mcpServer *mcpsdk.Server
	client    daemonClient
}

// NewServer creates a new MCP server that talks to the daemon over IPC.
func NewServer(client *ipc.Client) *Server {
	return newServer(client)
}

func newServer(client daemonClient) *Server {
	s := &Server{client: client}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report which window backend the dockwin daemon is bound to, how many windows and desktops it tracks, and the active window.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the windows shown in the dock's task list, with title, application id, desktop and state. Optionally filter by application id or to the current desktop.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_desktops",
		Description: "List the virtual desktops and which one is current. Empty when the window backend has no desktop support.",
	}, s.handleListDesktops)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_window",
		Description: "Raise and focus a window, unminimizing it if needed.",
	}, s.handleActivateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_window",
		Description: "Task-button click: activate the window, or minimize it when it is already the active window.",
	}, s.handleToggleWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "minimize_window",
		Description: "Minimize a window.",
	}, s.handleMinimizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Ask a window to close. The application may refuse or prompt the user.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_desktop",
		Description: "Switch to another virtual desktop, by id or by 1-based number.",
	}, s.handleSwitchDesktop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_desktop",
		Description: "Minimize every window on the current desktop (show=true), or restore exactly those windows (show=false).",
	}, s.handleShowDesktop)
}

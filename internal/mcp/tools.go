package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dockwin/internal/platform"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.client.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{
		Backend:        st.Backend,
		Reduced:        st.Reduced,
		WindowCount:    st.WindowCount,
		DesktopCount:   st.DesktopCount,
		CurrentDesktop: st.CurrentDesktop,
		ActiveWindow:   string(st.ActiveWindow),
		ShowingDesktop: st.ShowingDesktop,
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.client.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	current := ""
	if args.CurrentDesktop {
		desktops, err := s.client.ListDesktops()
		if err != nil {
			return nil, ListWindowsOutput{}, err
		}
		current = desktops.Current
	}

	windows := make([]platform.Window, 0, len(data.Windows))
	for _, w := range data.Windows {
		if args.AppID != "" && !strings.EqualFold(w.AppID, args.AppID) {
			continue
		}
		if current != "" && !w.OnAllDesktops && w.DesktopID != current {
			continue
		}
		windows = append(windows, w)
	}
	return nil, ListWindowsOutput{
		Windows: windows,
		Active:  string(data.Active),
		Count:   len(windows),
	}, nil
}

func (s *Server) handleListDesktops(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListDesktopsInput) (*mcpsdk.CallToolResult, ListDesktopsOutput, error) {
	data, err := s.client.ListDesktops()
	if err != nil {
		return nil, ListDesktopsOutput{}, err
	}
	return nil, ListDesktopsOutput{Desktops: data.Desktops, Current: data.Current}, nil
}

// windowAction validates the id and forwards it to cmd.
func windowAction(name string, args WindowInput, cmd func(platform.WindowID) error) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id := strings.TrimSpace(args.WindowID)
	if id == "" {
		return nil, ActionOutput{}, fmt.Errorf("window_id is required")
	}
	if err := cmd(platform.WindowID(id)); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{Requested: name, Target: id}, nil
}

func (s *Server) handleActivateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return windowAction("activate", args, s.client.ActivateWindow)
}

func (s *Server) handleToggleWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return windowAction("toggle", args, s.client.ToggleWindow)
}

func (s *Server) handleMinimizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return windowAction("minimize", args, s.client.MinimizeWindow)
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return windowAction("close", args, s.client.CloseWindow)
}

func (s *Server) handleSwitchDesktop(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchDesktopInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id := strings.TrimSpace(args.DesktopID)
	if id == "" {
		if args.Number <= 0 {
			return nil, ActionOutput{}, fmt.Errorf("desktop_id or a positive number is required")
		}
		resolved, err := s.desktopByNumber(args.Number)
		if err != nil {
			return nil, ActionOutput{}, err
		}
		id = resolved
	}
	if err := s.client.SetCurrentDesktop(id); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{Requested: "switch_desktop", Target: id}, nil
}

func (s *Server) desktopByNumber(n int) (string, error) {
	data, err := s.client.ListDesktops()
	if err != nil {
		return "", err
	}
	for _, d := range data.Desktops {
		if d.Number == n {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("no desktop number %d (have %d)", n, len(data.Desktops))
}

func (s *Server) handleShowDesktop(_ context.Context, _ *mcpsdk.CallToolRequest, args ShowDesktopInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.client.SetShowingDesktop(args.Show); err != nil {
		return nil, ActionOutput{}, err
	}
	target := "restore"
	if args.Show {
		target = "show"
	}
	return nil, ActionOutput{Requested: "show_desktop", Target: target}, nil
}

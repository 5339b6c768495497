package mcp

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/platform"
)

type fakeClient struct {
	windows  []platform.Window
	desktops []platform.Desktop
	current  string
	err      error
	calls    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		windows: []platform.Window{
			{ID: "a", AppID: "org.kde.kate", DesktopID: "d1"},
			{ID: "b", AppID: "org.kde.konsole", DesktopID: "d2"},
			{ID: "c", AppID: "org.kde.Kate", OnAllDesktops: true},
		},
		desktops: []platform.Desktop{{ID: "d1", Number: 1}, {ID: "d2", Number: 2}},
		current:  "d1",
	}
}

func (f *fakeClient) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.StatusData{Backend: "x11", WindowCount: len(f.windows), DesktopCount: 2, CurrentDesktop: f.current, ActiveWindow: "a"}, nil
}

func (f *fakeClient) ListWindows() (*ipc.WindowsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.WindowsData{Windows: f.windows, Active: "a"}, nil
}

func (f *fakeClient) ListDesktops() (*ipc.DesktopsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.DesktopsData{Desktops: f.desktops, Current: f.current}, nil
}

func (f *fakeClient) record(s string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, s)
	return nil
}

func (f *fakeClient) ActivateWindow(id platform.WindowID) error { return f.record("activate " + string(id)) }
func (f *fakeClient) ToggleWindow(id platform.WindowID) error { return f.record("toggle " + string(id)) }
func (f *fakeClient) MinimizeWindow(id platform.WindowID) error { return f.record("minimize " + string(id)) }
func (f *fakeClient) CloseWindow(id platform.WindowID) error { return f.record("close " + string(id)) }
func (f *fakeClient) SetCurrentDesktop(id string) error { return f.record("desktop " + id) }
func (f *fakeClient) SetShowingDesktop(show bool) error {
	if show {
		return f.record("show")
	}
	return f.record("restore")
}

func ids(ws []platform.Window) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, string(w.ID))
	}
	return out
}

func TestHandleListWindows_Filters(t *testing.T) {
	tests := []struct {
		name string
		args ListWindowsInput
		want []string
	}{
		{"all", ListWindowsInput{}, []string{"a", "b", "c"}},
		{"app id ignores case", ListWindowsInput{AppID: "ORG.KDE.KATE"}, []string{"a", "c"}},
		{"current desktop keeps sticky windows", ListWindowsInput{CurrentDesktop: true}, []string{"a", "c"}},
		{"both", ListWindowsInput{AppID: "org.kde.konsole", CurrentDesktop: true}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(newFakeClient())
			_, out, err := s.handleListWindows(context.Background(), nil, tt.args)
			if err != nil {
				t.Fatalf("handleListWindows: %v", err)
			}
			if got := ids(out.Windows); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("windows = %v, want %v", got, tt.want)
			}
			if out.Count != len(tt.want) || out.Active != "a" {
				t.Fatalf("out = %+v", out)
			}
		})
	}
}

func TestHandleWindowActions(t *testing.T) {
	fc := newFakeClient()
	s := newServer(fc)
	ctx := context.Background()

	if _, out, err := s.handleActivateWindow(ctx, nil, WindowInput{WindowID: "a"}); err != nil || out.Target != "a" {
		t.Fatalf("activate = %+v, %v", out, err)
	}
	if _, _, err := s.handleToggleWindow(ctx, nil, WindowInput{WindowID: " b "}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, _, err := s.handleMinimizeWindow(ctx, nil, WindowInput{WindowID: "c"}); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	if _, _, err := s.handleCloseWindow(ctx, nil, WindowInput{WindowID: "a"}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := s.handleCloseWindow(ctx, nil, WindowInput{}); err == nil || !strings.Contains(err.Error(), "window_id is required") {
		t.Fatalf("close without id = %v", err)
	}

	want := []string{"activate a", "toggle b", "minimize c", "close a"}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %v, want %v", fc.calls, want)
	}
}

func TestHandleSwitchDesktop(t *testing.T) {
	tests := []struct {
		name    string
		args    SwitchDesktopInput
		want    string
		wantErr string
	}{
		{name: "by id", args: SwitchDesktopInput{DesktopID: "d2"}, want: "desktop d2"},
		{name: "by number", args: SwitchDesktopInput{Number: 2}, want: "desktop d2"},
		{name: "id wins", args: SwitchDesktopInput{DesktopID: "d1", Number: 2}, want: "desktop d1"},
		{name: "missing number", args: SwitchDesktopInput{Number: 7}, wantErr: "no desktop number 7"},
		{name: "nothing", args: SwitchDesktopInput{}, wantErr: "desktop_id or a positive number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeClient()
			_, _, err := newServer(fc).handleSwitchDesktop(context.Background(), nil, tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				if len(fc.calls) != 0 {
					t.Fatalf("calls = %v", fc.calls)
				}
				return
			}
			if err != nil {
				t.Fatalf("handleSwitchDesktop: %v", err)
			}
			if len(fc.calls) != 1 || fc.calls[0] != tt.want {
				t.Fatalf("calls = %v, want [%s]", fc.calls, tt.want)
			}
		})
	}
}

func TestHandleShowDesktop(t *testing.T) {
	fc := newFakeClient()
	s := newServer(fc)
	if _, out, err := s.handleShowDesktop(context.Background(), nil, ShowDesktopInput{Show: true}); err != nil || out.Target != "show" {
		t.Fatalf("show = %+v, %v", out, err)
	}
	if _, out, err := s.handleShowDesktop(context.Background(), nil, ShowDesktopInput{}); err != nil || out.Target != "restore" {
		t.Fatalf("restore = %+v, %v", out, err)
	}
	if !reflect.DeepEqual(fc.calls, []string{"show", "restore"}) {
		t.Fatalf("calls = %v", fc.calls)
	}
}

func TestHandlers_PropagateDaemonErrors(t *testing.T) {
	fc := newFakeClient()
	fc.err = errors.New("failed to connect to daemon")
	s := newServer(fc)
	ctx := context.Background()

	if _, _, err := s.handleGetStatus(ctx, nil, GetStatusInput{}); err == nil {
		t.Fatal("get_status: expected error")
	}
	if _, _, err := s.handleListDesktops(ctx, nil, ListDesktopsInput{}); err == nil {
		t.Fatal("list_desktops: expected error")
	}
	if _, _, err := s.handleActivateWindow(ctx, nil, WindowInput{WindowID: "a"}); err == nil {
		t.Fatal("activate_window: expected error")
	}
}

func TestServer_ListsTools(t *testing.T) {
	ctx := context.Background()
	s := newServer(newFakeClient())

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		"get_status", "list_windows", "list_desktops", "activate_window", "toggle_window",
		"minimize_window", "close_window", "switch_desktop", "show_desktop",
	} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

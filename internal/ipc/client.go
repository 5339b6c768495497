package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/runtimepath"
)

// ErrStreamClosed is returned by Subscribe when the daemon ends the stream.
var ErrStreamClosed = errors.New("daemon closed the event stream")

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath("")
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at path.
func NewClientAt(path string) *Client {
	return &Client{
		socketPath: path,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

func writeRequest(conn net.Conn, req *Request) error {
	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeRequest(conn, req); err != nil {
		return nil, err
	}
	return readResponse(bufio.NewReader(conn))
}

func (c *Client) command(cmd CommandType, payload interface{}) (*Response, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return c.sendRequest(req)
}

func decodeData[T any](resp *Response, what string) (*T, error) {
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s data: %w", what, err)
	}
	return &out, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.command(CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[StatusData](resp, "status")
}

// ListWindows retrieves the task-list windows.
func (c *Client) ListWindows() (*WindowsData, error) {
	resp, err := c.command(CommandListWindows, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[WindowsData](resp, "windows")
}

// ListDesktops retrieves the virtual desktops.
func (c *Client) ListDesktops() (*DesktopsData, error) {
	resp, err := c.command(CommandListDesktops, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[DesktopsData](resp, "desktops")
}

// ActivateWindow asks the daemon to activate a window.
func (c *Client) ActivateWindow(id platform.WindowID) error {
	_, err := c.command(CommandActivateWindow, WindowPayload{WindowID: id})
	return err
}

// ToggleWindow activates a window, or minimizes it when it is already active.
func (c *Client) ToggleWindow(id platform.WindowID) error {
	_, err := c.command(CommandToggleWindow, WindowPayload{WindowID: id})
	return err
}

// MinimizeWindow asks the daemon to minimize a window.
func (c *Client) MinimizeWindow(id platform.WindowID) error {
	_, err := c.command(CommandMinimizeWindow, WindowPayload{WindowID: id})
	return err
}

// CloseWindow asks the daemon to close a window.
func (c *Client) CloseWindow(id platform.WindowID) error {
	_, err := c.command(CommandCloseWindow, WindowPayload{WindowID: id})
	return err
}

// SetCurrentDesktop asks the daemon to switch desktops.
func (c *Client) SetCurrentDesktop(id string) error {
	_, err := c.command(CommandSetCurrentDesktop, DesktopPayload{DesktopID: id})
	return err
}

// SetShowingDesktop starts or ends a show-desktop cycle.
func (c *Client) SetShowingDesktop(show bool) error {
	_, err := c.command(CommandSetShowingDesktop, ShowDesktopPayload{Show: show})
	return err
}

// ResetActiveWindow clears the daemon's active window.
func (c *Client) ResetActiveWindow() error {
	_, err := c.command(CommandResetActiveWindow, nil)
	return err
}

// Subscribe streams events to fn until ctx is done, fn returns an error, or
// the daemon closes the stream.
func (c *Client) Subscribe(ctx context.Context, fn func(platform.Event) error) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeRequest(conn, &Request{Command: CommandSubscribe}); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	if _, err := readResponse(reader); err != nil {
		return err
	}
	conn.SetDeadline(time.Time{})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		resp, err := readResponse(reader)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return fmt.Errorf("event stream: %w", err)
		}
		if resp.Status != StatusEvent {
			continue
		}
		var ev platform.Event
		if err := json.Unmarshal(resp.Data, &ev); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}

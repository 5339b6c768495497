package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/dockwin/internal/metrics"
	"github.com/1broseidon/dockwin/internal/platform"
	"github.com/1broseidon/dockwin/internal/runtimepath"
)

const (
	defaultRequestTimeout = 5 * time.Second
	subscriberBuffer      = 256
)

// WindowSystem is the part of the window-system facade the server drives.
// Every method is called on the event loop.
type WindowSystem interface {
	BackendName() string
	Capabilities() platform.Capabilities
	Reduced() bool

	Windows() []platform.Window
	Window(id platform.WindowID) (platform.Window, bool)
	ActiveWindow() platform.WindowID
	StackingOrder() []platform.WindowID
	Desktops() []platform.Desktop
	NumberOfDesktops() int
	CurrentDesktop() string
	ShowingDesktop() bool

	ActivateWindow(id platform.WindowID)
	ActivateOrMinimizeWindow(id platform.WindowID)
	MinimizeWindow(id platform.WindowID)
	CloseWindow(id platform.WindowID)
	SetCurrentDesktop(id string)
	SetShowingDesktop(show bool)
	ResetActiveWindow()

	Subscribe(fn func(platform.Event)) (cancel func())
}

// Caller runs a closure on the event loop and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// SocketPath overrides the runtime-dir socket.
	SocketPath     string
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	sys        WindowSystem
	loop       Caller
	logger     *slog.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
	startTime  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subscribers atomic.Int64

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(sys WindowSystem, loop Caller, opts ServerOptions) (*Server, error) {
	socketPath, err := runtimepath.SocketPath(opts.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		sys:        sys,
		loop:       loop,
		logger:     logger,
		metrics:    opts.Metrics,
		timeout:    timeout,
		startTime:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove existing socket if present
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	conn.SetReadDeadline(time.Now().Add(s.timeout))
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	if req.Command == CommandSubscribe {
		s.handleSubscribe(conn, reader)
		return
	}

	s.writeResponse(conn, s.handleCommand(req))
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var resp *Response
	label := string(req.Command)
	switch req.Command {
	case CommandGetStatus:
		resp = s.handleGetStatus(ctx)
	case CommandListWindows:
		resp = s.handleListWindows(ctx)
	case CommandListDesktops:
		resp = s.handleListDesktops(ctx)
	case CommandActivateWindow:
		resp = s.handleWindowCommand(ctx, req.Payload, s.sys.ActivateWindow)
	case CommandToggleWindow:
		resp = s.handleWindowCommand(ctx, req.Payload, s.sys.ActivateOrMinimizeWindow)
	case CommandMinimizeWindow:
		resp = s.handleWindowCommand(ctx, req.Payload, s.sys.MinimizeWindow)
	case CommandCloseWindow:
		resp = s.handleWindowCommand(ctx, req.Payload, s.sys.CloseWindow)
	case CommandSetCurrentDesktop:
		resp = s.handleSetCurrentDesktop(ctx, req.Payload)
	case CommandSetShowingDesktop:
		resp = s.handleSetShowingDesktop(ctx, req.Payload)
	case CommandResetActiveWindow:
		resp = s.onLoop(ctx, func() *Response {
			s.sys.ResetActiveWindow()
			return okResponse(nil)
		})
	default:
		label = "unknown"
		resp = NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}

	if s.metrics != nil {
		s.metrics.IPCRequests.WithLabelValues(label, resp.Status).Inc()
	}
	return resp
}

// onLoop runs fn on the event loop and returns its response.
func (s *Server) onLoop(ctx context.Context, fn func() *Response) *Response {
	var resp *Response
	if err := s.loop.Call(ctx, func() { resp = fn() }); err != nil {
		return NewErrorResponse(fmt.Sprintf("daemon unavailable: %v", err))
	}
	if resp == nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	return s.onLoop(ctx, func() *Response {
		return okResponse(StatusData{
			Backend:        s.sys.BackendName(),
			Reduced:        s.sys.Reduced(),
			Capabilities:   s.sys.Capabilities(),
			WindowCount:    len(s.sys.Windows()),
			DesktopCount:   s.sys.NumberOfDesktops(),
			CurrentDesktop: s.sys.CurrentDesktop(),
			ActiveWindow:   s.sys.ActiveWindow(),
			ShowingDesktop: s.sys.ShowingDesktop(),
			UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
			DaemonRunning:  true,
		})
	})
}

func (s *Server) handleListWindows(ctx context.Context) *Response {
	return s.onLoop(ctx, func() *Response {
		windows := s.sys.Windows()
		if windows == nil {
			windows = []platform.Window{}
		}
		return okResponse(WindowsData{
			Windows:  windows,
			Active:   s.sys.ActiveWindow(),
			Stacking: s.sys.StackingOrder(),
		})
	})
}

func (s *Server) handleListDesktops(ctx context.Context) *Response {
	return s.onLoop(ctx, func() *Response {
		desktops := s.sys.Desktops()
		if desktops == nil {
			desktops = []platform.Desktop{}
		}
		return okResponse(DesktopsData{
			Desktops: desktops,
			Current:  s.sys.CurrentDesktop(),
		})
	})
}

// handleWindowCommand applies cmd to the window named in payload. Unknown
// windows are reported to the client instead of being silently dropped.
func (s *Server) handleWindowCommand(ctx context.Context, payload json.RawMessage, cmd func(platform.WindowID)) *Response {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid window payload: %v", err))
	}
	if req.WindowID == platform.NoWindow {
		return NewErrorResponse("window_id is required")
	}
	return s.onLoop(ctx, func() *Response {
		if _, ok := s.sys.Window(req.WindowID); !ok {
			return NewErrorResponse(fmt.Sprintf("Unknown window: %s", req.WindowID))
		}
		cmd(req.WindowID)
		return okResponse(nil)
	})
}

func (s *Server) handleSetCurrentDesktop(ctx context.Context, payload json.RawMessage) *Response {
	var req DesktopPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid desktop payload: %v", err))
	}
	if req.DesktopID == "" {
		return NewErrorResponse("desktop_id is required")
	}
	return s.onLoop(ctx, func() *Response {
		if !s.sys.Capabilities().VirtualDesktops {
			return NewErrorResponse(fmt.Sprintf("backend %s has no virtual desktops", s.sys.BackendName()))
		}
		for _, d := range s.sys.Desktops() {
			if d.ID == req.DesktopID {
				s.sys.SetCurrentDesktop(req.DesktopID)
				return okResponse(nil)
			}
		}
		return NewErrorResponse(fmt.Sprintf("Unknown desktop: %s", req.DesktopID))
	})
}

func (s *Server) handleSetShowingDesktop(ctx context.Context, payload json.RawMessage) *Response {
	var req ShowDesktopPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid show-desktop payload: %v", err))
	}
	return s.onLoop(ctx, func() *Response {
		s.sys.SetShowingDesktop(req.Show)
		return okResponse(nil)
	})
}

// handleSubscribe streams every published event to conn until the client
// disconnects, falls too far behind, or the server stops.
func (s *Server) handleSubscribe(conn net.Conn, reader *bufio.Reader) {
	events := make(chan platform.Event, subscriberBuffer)
	overflow := make(chan struct{})
	overflowed := false // touched only on the event loop

	var cancelSub func()
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	err := s.loop.Call(ctx, func() {
		cancelSub = s.sys.Subscribe(func(ev platform.Event) {
			if overflowed {
				return
			}
			select {
			case events <- ev:
			default:
				overflowed = true
				close(overflow)
			}
		})
	})
	cancel()
	if err != nil || cancelSub == nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("daemon unavailable: %v", err)))
		s.observeRequest(string(CommandSubscribe), StatusError)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.loop.Call(ctx, cancelSub)
	}()

	s.observeRequest(string(CommandSubscribe), StatusOK)
	s.setSubscribers(s.subscribers.Add(1))
	defer func() { s.setSubscribers(s.subscribers.Add(-1)) }()

	if !s.writeResponse(conn, okResponse(nil)) {
		return
	}

	gone := make(chan struct{})
	go func() {
		io.Copy(io.Discard, reader)
		close(gone)
	}()

	for {
		select {
		case ev := <-events:
			resp, err := NewEventResponse(ev)
			if err != nil {
				s.logger.Warn("IPC: failed to encode event", "kind", ev.Kind, "error", err)
				continue
			}
			if !s.writeResponse(conn, resp) {
				return
			}
		case <-overflow:
			s.logger.Warn("IPC: subscriber fell behind, dropping it")
			return
		case <-gone:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) observeRequest(command, status string) {
	if s.metrics != nil {
		s.metrics.IPCRequests.WithLabelValues(command, status).Inc()
	}
}

func (s *Server) setSubscribers(n int64) {
	if s.metrics != nil {
		s.metrics.Subscribers.Set(float64(n))
	}
}

// writeResponse sends one response line. It reports false when the client
// is gone.
func (s *Server) writeResponse(conn net.Conn, resp *Response) bool {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("IPC: failed to marshal response", "error", err)
		return false
	}
	data = append(data, '\n')
	conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("IPC: failed to send response", "error", err)
		return false
	}
	return true
}

func okResponse(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

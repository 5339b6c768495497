// Package wayland is a small client for the Wayland wire protocol: enough to
// bind globals, send requests and dispatch events for the window-management
// extensions the dock speaks.
//
// A Conn is not safe for concurrent use. During startup the caller drives it
// directly (Roundtrip); afterwards Start hands every decoded event to a
// single event-loop goroutine, which is also the only goroutine sending
// requests.
package wayland

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrNoDisplay is returned by Dial when no Wayland socket is configured.
var ErrNoDisplay = errors.New("wayland: no display socket (WAYLAND_DISPLAY unset)")

const (
	displayID     = 1
	serverIDStart = 0xff000000
)

// Dispatcher receives the events addressed to one object.
type Dispatcher interface {
	Dispatch(m *Message)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(m *Message)

// Dispatch calls f(m).
func (f DispatcherFunc) Dispatch(m *Message) { f(m) }

// Conn is a connection to a Wayland compositor.
type Conn struct {
	sock    *net.UnixConn
	reader  *bufio.Reader
	objects map[uint32]Dispatcher
	nextID  uint32
	logger  *slog.Logger

	// fatal is set by wl_display.error; the compositor closes the socket next.
	fatal error
}

// SocketPath resolves the compositor socket from the environment.
func SocketPath() (string, error) {
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		return "", ErrNoDisplay
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("wayland: XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, name), nil
}

// Dial connects to the compositor named by WAYLAND_SOCKET or WAYLAND_DISPLAY.
func Dial(logger *slog.Logger) (*Conn, error) {
	if fdStr := os.Getenv("WAYLAND_SOCKET"); fdStr != "" {
		fd, err := strconv.Atoi(fdStr)
		if err != nil {
			return nil, fmt.Errorf("wayland: invalid WAYLAND_SOCKET %q: %w", fdStr, err)
		}
		os.Unsetenv("WAYLAND_SOCKET")
		f := os.NewFile(uintptr(fd), "wayland-socket")
		defer f.Close()
		c, err := net.FileConn(f)
		if err != nil {
			return nil, fmt.Errorf("wayland: adopt WAYLAND_SOCKET: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("wayland: WAYLAND_SOCKET is not a unix socket")
		}
		return NewConn(uc, logger), nil
	}

	path, err := SocketPath()
	if err != nil {
		return nil, err
	}
	uc, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("wayland: connect %s: %w", path, err)
	}
	return NewConn(uc, logger), nil
}

// NewConn wraps an established socket.
func NewConn(sock *net.UnixConn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		sock:    sock,
		objects: make(map[uint32]Dispatcher),
		nextID:  displayID + 1,
		logger:  logger,
	}
	c.reader = bufio.NewReaderSize(&fdDropper{sock: sock}, 4096)
	c.objects[displayID] = DispatcherFunc(c.dispatchDisplay)
	return c
}

// Close closes the socket.
func (c *Conn) Close() error {
	return c.sock.Close()
}

// NewObject allocates a client-side id for d.
func (c *Conn) NewObject(d Dispatcher) uint32 {
	id := c.nextID
	c.nextID++
	c.objects[id] = d
	return id
}

// Register binds a server-allocated id (announced through a new_id event
// argument) to d. A stale registration for a reused id is replaced.
func (c *Conn) Register(id uint32, d Dispatcher) {
	c.objects[id] = d
}

// Forget stops dispatching events to id. Events that still arrive for it
// are dropped.
func (c *Conn) Forget(id uint32) {
	delete(c.objects, id)
}

// Send encodes and writes a request.
func (c *Conn) Send(r *Request) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	if _, err := c.sock.Write(b); err != nil {
		return fmt.Errorf("wayland: write request: %w", err)
	}
	return nil
}

// Sync sends wl_display.sync; done runs when the compositor answers.
func (c *Conn) Sync(done func()) error {
	var cbID uint32
	cbID = c.NewObject(DispatcherFunc(func(m *Message) {
		if m.Opcode != 0 {
			return
		}
		c.Forget(cbID)
		done()
	}))
	return c.Send(NewRequest(displayID, 0).NewID(cbID))
}

// GetRegistry sends wl_display.get_registry.
func (c *Conn) GetRegistry() (*Registry, error) {
	r := &Registry{conn: c, globals: make(map[uint32]Global)}
	r.id = c.NewObject(r)
	if err := c.Send(NewRequest(displayID, 1).NewID(r.id)); err != nil {
		return nil, err
	}
	return r, nil
}

// Roundtrip blocks until the compositor has processed every request sent so
// far, dispatching the events that arrive meanwhile. It must not be called
// after Start.
func (c *Conn) Roundtrip() error {
	done := false
	if err := c.Sync(func() { done = true }); err != nil {
		return err
	}
	for !done {
		m, err := c.ReadMessage()
		if err != nil {
			return err
		}
		c.Dispatch(m)
		if c.fatal != nil {
			return c.fatal
		}
	}
	return nil
}

// ReadMessage reads one framed event from the socket.
func (c *Conn) ReadMessage() (*Message, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(c.reader, hdr[:]); err != nil {
		return nil, fmt.Errorf("wayland: read header: %w", err)
	}
	sender := order.Uint32(hdr[0:])
	word := order.Uint32(hdr[4:])
	size := int(word >> 16)
	if size < headerSize {
		return nil, fmt.Errorf("wayland: invalid message size %d", size)
	}
	body := make([]byte, size-headerSize)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("wayland: read body: %w", err)
	}
	return NewMessage(sender, uint16(word&0xffff), body), nil
}

// Dispatch routes m to its object. Events for unknown objects are dropped.
func (c *Conn) Dispatch(m *Message) {
	d, ok := c.objects[m.Sender]
	if !ok {
		c.logger.Debug("wayland: event for unknown object dropped", "object", m.Sender, "opcode", m.Opcode)
		return
	}
	d.Dispatch(m)
}

// Start reads events on a new goroutine and hands each one to post, in wire
// order. fail is called once when the connection breaks.
func (c *Conn) Start(post func(func()), fail func(error)) {
	go func() {
		for {
			m, err := c.ReadMessage()
			if err != nil {
				post(func() {
					if c.fatal != nil {
						fail(c.fatal)
						return
					}
					fail(err)
				})
				return
			}
			post(func() { c.Dispatch(m) })
		}
	}()
}

func (c *Conn) dispatchDisplay(m *Message) {
	switch m.Opcode {
	case 0: // error
		obj := m.Object()
		code := m.Uint()
		msg := m.String()
		c.fatal = fmt.Errorf("wayland: protocol error on object %d (code %d): %s", obj, code, msg)
		c.logger.Error("wayland protocol error", "object", obj, "code", code, "message", msg)
	case 1: // delete_id
		id := m.Uint()
		if m.Err() == nil {
			c.Forget(id)
		}
	}
}

// fdDropper reads from the socket and closes any descriptors passed along
// with the data; none of the bound interfaces expect them.
type fdDropper struct {
	sock *net.UnixConn
	oob  [256]byte
}

func (f *fdDropper) Read(p []byte) (int, error) {
	n, oobn, _, _, err := f.sock.ReadMsgUnix(p, f.oob[:])
	if oobn > 0 {
		closeRights(f.oob[:oobn])
	}
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func closeRights(oob []byte) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return
	}
	for i := range msgs {
		fds, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		for _, fd := range fds {
			unix.Close(fd)
		}
	}
}

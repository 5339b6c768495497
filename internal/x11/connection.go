package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
)

// ErrClosed is reported by the event reader when the X server goes away.
var ErrClosed = errors.New("x11: connection closed")

// Connection manages the X11 connection and the root window.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to the X server named by $DISPLAY.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11: connect: %w", err)
	}
	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// Close cleanly disconnects from the X11 server.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// watchRoot subscribes to root property changes (client list, active
// window, desktops).
func (c *Connection) watchRoot() error {
	return xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
}

// watch subscribes to property and geometry changes of a client window.
func (c *Connection) watch(win uint32) {
	xproto.ChangeWindowAttributes(c.XUtil.Conn(), xproto.Window(win),
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify})
}

// atomName resolves an atom through xgbutil's cache.
func (c *Connection) atomName(atom xproto.Atom) string {
	name, err := xprop.AtomName(c.XUtil, atom)
	if err != nil {
		return ""
	}
	return name
}

// internAtom resolves an atom name through xgbutil's cache.
func (c *Connection) internAtom(name string) (xproto.Atom, error) {
	atom, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return atom, nil
}

// change is one decoded X event relevant to the window model.
type change struct {
	window   uint32
	property string
	geometry bool
	destroy  bool
}

// Start reads X events on a goroutine and hands the decoded changes to post
// in arrival order. fail is called once when the connection breaks.
func (c *Connection) Start(handle func(change), post func(func()), fail func(error)) {
	go func() {
		for {
			ev, xerr := c.XUtil.Conn().WaitForEvent()
			if ev == nil && xerr == nil {
				fail(ErrClosed)
				return
			}
			if xerr != nil {
				// Errors from fire-and-forget requests on vanished windows.
				continue
			}
			ch, ok := c.decode(ev)
			if !ok {
				continue
			}
			post(func() { handle(ch) })
		}
	}()
}

func (c *Connection) decode(ev xgb.Event) (change, bool) {
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		return change{window: uint32(e.Window), property: c.atomName(e.Atom)}, true
	case xproto.ConfigureNotifyEvent:
		return change{window: uint32(e.Window), geometry: true}, true
	case xproto.DestroyNotifyEvent:
		return change{window: uint32(e.Window), destroy: true}, true
	}
	return change{}, false
}

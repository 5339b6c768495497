package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const (
	// sourceIndication tells the window manager the request comes from a pager.
	sourceIndication = 2
	iconicState      = 3
	allDesktops      = 0xFFFFFFFF
)

// sendRootMessage sends a format-32 client message about win to the root
// window. The messages are built by hand because the xgbutil ewmh request
// helpers panic on this library version (uint vs int type assertion).
func (c *Connection) sendRootMessage(win uint32, name string, data ...uint32) error {
	atom, err := c.internAtom(name)
	if err != nil {
		return err
	}
	payload := make([]uint32, 5)
	copy(payload, data)

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: xproto.Window(win),
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// CurrentDesktop returns the current virtual desktop number (0-indexed).
func (c *Connection) CurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// DesktopCount returns the number of virtual desktops.
func (c *Connection) DesktopCount() (int, error) {
	count, err := ewmh.NumberOfDesktopsGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get desktop count: %w", err)
	}
	return int(count), nil
}

// DesktopNames returns _NET_DESKTOP_NAMES; it may be shorter than the
// number of desktops.
func (c *Connection) DesktopNames() []string {
	names, err := ewmh.DesktopNamesGet(c.XUtil)
	if err != nil {
		return nil
	}
	return names
}

// SetCurrentDesktop asks the window manager to switch desktops.
func (c *Connection) SetCurrentDesktop(desktop int) error {
	return c.sendRootMessage(uint32(c.Root), "_NET_CURRENT_DESKTOP", uint32(desktop), uint32(xproto.TimeCurrentTime))
}

// PinToAllDesktops moves a window onto every desktop (_NET_WM_DESKTOP = all).
func (c *Connection) PinToAllDesktops(win uint32) error {
	return c.sendRootMessage(win, "_NET_WM_DESKTOP", allDesktops, sourceIndication)
}

// SkipTaskbar adds _NET_WM_STATE_SKIP_TASKBAR to a window.
func (c *Connection) SkipTaskbar(win uint32) error {
	atom, err := c.internAtom("_NET_WM_STATE_SKIP_TASKBAR")
	if err != nil {
		return err
	}
	const add = 1
	return c.sendRootMessage(win, "_NET_WM_STATE", add, uint32(atom), 0, sourceIndication)
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
func (c *Connection) FocusWindow(win uint32) error {
	return c.sendRootMessage(win, "_NET_ACTIVE_WINDOW", sourceIndication, uint32(xproto.TimeCurrentTime))
}

// MinimizeWindow iconifies a window via WM_CHANGE_STATE.
func (c *Connection) MinimizeWindow(win uint32) error {
	return c.sendRootMessage(win, "WM_CHANGE_STATE", iconicState)
}

// CloseWindow asks the window manager to close a window via _NET_CLOSE_WINDOW.
func (c *Connection) CloseWindow(win uint32) error {
	return c.sendRootMessage(win, "_NET_CLOSE_WINDOW", uint32(xproto.TimeCurrentTime), sourceIndication)
}

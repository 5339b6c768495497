package x11

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/dockwin/internal/platform"
)

// client is everything read from one managed window in a single pass.
type client struct {
	Title    string
	AppID    string
	PID      int
	Geometry platform.Rect
	Desktop  int // -1 when on all desktops
	States   []string
	Types    []string
	Iconic   bool
}

// flags is the task-list relevant part of _NET_WM_STATE.
type flags struct {
	minimized        bool
	maximized        bool
	fullscreen       bool
	skipTaskbar      bool
	demandsAttention bool
	sticky           bool
}

func parseStates(states []string) flags {
	var f flags
	var maxH, maxV bool
	for _, s := range states {
		switch s {
		case "_NET_WM_STATE_HIDDEN":
			f.minimized = true
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			maxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			maxV = true
		case "_NET_WM_STATE_FULLSCREEN":
			f.fullscreen = true
		case "_NET_WM_STATE_SKIP_TASKBAR":
			f.skipTaskbar = true
		case "_NET_WM_STATE_DEMANDS_ATTENTION":
			f.demandsAttention = true
		case "_NET_WM_STATE_STICKY":
			f.sticky = true
		}
	}
	f.maximized = maxH && maxV
	return f
}

// listable reports whether a window type belongs in a task list. Windows
// without a type are treated as normal.
func listable(types []string) bool {
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_MENU",
			"_NET_WM_WINDOW_TYPE_UTILITY",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return true
}

// apply copies the client's properties onto a window view.
func (cl client) apply(w *platform.Window) {
	f := parseStates(cl.States)
	w.Title = cl.Title
	w.PID = cl.PID
	w.Geometry = cl.Geometry
	w.Minimized = f.minimized || cl.Iconic
	w.Maximized = f.maximized
	w.Fullscreen = f.fullscreen
	w.SkipTaskbar = f.skipTaskbar || !listable(cl.Types)
	w.DemandsAttention = f.demandsAttention
	w.OnAllDesktops = f.sticky || cl.Desktop < 0
	if cl.Desktop >= 0 {
		w.DesktopID = strconv.Itoa(cl.Desktop)
	} else {
		w.DesktopID = ""
	}
}

// ClientStacking returns the managed windows, bottom to top.
func (c *Connection) ClientStacking() ([]uint32, error) {
	wins, err := ewmh.ClientListStackingGet(c.XUtil)
	if err != nil {
		wins, err = ewmh.ClientListGet(c.XUtil)
		if err != nil {
			return nil, fmt.Errorf("failed to get client list: %w", err)
		}
	}
	out := make([]uint32, len(wins))
	for i, w := range wins {
		out[i] = uint32(w)
	}
	return out, nil
}

// ActiveWindow returns _NET_ACTIVE_WINDOW (0 when none).
func (c *Connection) ActiveWindow() uint32 {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0
	}
	return uint32(win)
}

// ReadClient reads every property the window model needs.
func (c *Connection) ReadClient(win uint32) (client, error) {
	id := xproto.Window(win)
	var cl client

	cl.Title = c.windowTitle(id)
	cl.AppID = c.windowAppID(id)
	if pid, err := ewmh.WmPidGet(c.XUtil, id); err == nil {
		cl.PID = int(pid)
	}
	cl.States, _ = ewmh.WmStateGet(c.XUtil, id)
	cl.Types, _ = ewmh.WmWindowTypeGet(c.XUtil, id)
	if st, err := icccm.WmStateGet(c.XUtil, id); err == nil {
		cl.Iconic = st.State == icccm.StateIconic
	}

	if d, err := ewmh.WmDesktopGet(c.XUtil, id); err == nil {
		if d == allDesktops {
			cl.Desktop = -1
		} else {
			cl.Desktop = int(d)
		}
	}

	r, err := c.windowRect(id)
	if err != nil {
		return client{}, err
	}
	cl.Geometry = r
	return cl, nil
}

// windowRect returns the window geometry in root coordinates.
func (c *Connection) windowRect(id xproto.Window) (platform.Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(id)).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to get geometry: %w", err)
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), id, c.Root, 0, 0).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}
	return platform.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

func (c *Connection) windowAppID(id xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, id)
	if err != nil {
		return ""
	}
	if class := strings.TrimSpace(wmClass.Class); class != "" {
		return class
	}
	return strings.TrimSpace(wmClass.Instance)
}

func (c *Connection) windowTitle(id xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, id); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, id); err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

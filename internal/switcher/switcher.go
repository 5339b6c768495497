package switcher

import (
	"fmt"
	"strings"

	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/platform"
)

// Daemon is the IPC surface the switcher uses.
type Daemon interface {
	ListWindows() (*ipc.WindowsData, error)
	ListDesktops() (*ipc.DesktopsData, error)
	ActivateWindow(id platform.WindowID) error
	MinimizeWindow(id platform.WindowID) error
	CloseWindow(id platform.WindowID) error
}

// Rows builds the menu: windows grouped under their desktop in desktop
// order, sticky windows first. Headers are only emitted when there is more
// than one group.
func Rows(windows []platform.Window, desktops []platform.Desktop, active platform.WindowID) []Row {
	type group struct {
		title string
		rows  []Row
	}
	sticky := &group{title: "All desktops"}
	byDesktop := make(map[string]*group, len(desktops))
	order := []*group{sticky}
	for _, d := range desktops {
		title := d.Name
		if title == "" {
			title = fmt.Sprintf("Desktop %d", d.Number)
		}
		g := &group{title: title}
		byDesktop[d.ID] = g
		order = append(order, g)
	}
	other := &group{title: "Other"}
	order = append(order, other)

	for _, w := range windows {
		g := other
		switch {
		case w.OnAllDesktops || w.DesktopID == "":
			g = sticky
		case byDesktop[w.DesktopID] != nil:
			g = byDesktop[w.DesktopID]
		}
		g.rows = append(g.rows, windowRow(w, active))
	}

	nonEmpty := 0
	for _, g := range order {
		if len(g.rows) > 0 {
			nonEmpty++
		}
	}
	var rows []Row
	for _, g := range order {
		if len(g.rows) == 0 {
			continue
		}
		if nonEmpty > 1 {
			rows = append(rows, Row{Label: g.title, Header: true})
		}
		rows = append(rows, g.rows...)
	}
	return rows
}

func windowRow(w platform.Window, active platform.WindowID) Row {
	title := strings.TrimSpace(w.Title)
	if title == "" {
		title = w.AppID
	}
	label := title
	if w.AppID != "" && title != w.AppID {
		label = fmt.Sprintf("%s  [%s]", title, w.AppID)
	}
	if w.Minimized {
		label += "  (minimized)"
	}
	return Row{
		Label:   label,
		Icon:    w.AppID,
		Key:     string(w.ID),
		Current: w.ID == active,
		Urgent:  w.DemandsAttention,
	}
}

// Run shows the task list in l and applies the pick through d. It returns
// the pick so callers can report it, or ErrCancelled.
func Run(d Daemon, l Launcher) (Pick, error) {
	windows, err := d.ListWindows()
	if err != nil {
		return Pick{}, err
	}
	if len(windows.Windows) == 0 {
		return Pick{}, fmt.Errorf("no windows")
	}
	var desktops []platform.Desktop
	if data, err := d.ListDesktops(); err == nil {
		desktops = data.Desktops
	}

	pick, err := l.Pick("windows", Rows(windows.Windows, desktops, windows.Active))
	if err != nil {
		return Pick{}, err
	}
	id := platform.WindowID(pick.Row.Key)
	switch pick.Action {
	case ActionMinimize:
		err = d.MinimizeWindow(id)
	case ActionClose:
		err = d.CloseWindow(id)
	default:
		err = d.ActivateWindow(id)
	}
	if err != nil {
		return Pick{}, fmt.Errorf("%s %s: %w", pick.Action, id, err)
	}
	return pick, nil
}

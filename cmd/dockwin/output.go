package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/platform"
)

// wantJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal.
func wantJSON(flagged bool) bool {
	return flagged || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printStatus(w io.Writer, s *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running:  %v\n", s.DaemonRunning)
	fmt.Fprintf(w, "backend:         %s\n", s.Backend)
	fmt.Fprintf(w, "reduced:         %v\n", s.Reduced)
	fmt.Fprintf(w, "capabilities:    %s\n", formatCapabilities(s.Capabilities))
	fmt.Fprintf(w, "windows:         %d\n", s.WindowCount)
	fmt.Fprintf(w, "desktops:        %d\n", s.DesktopCount)
	fmt.Fprintf(w, "current_desktop: %s\n", s.CurrentDesktop)
	fmt.Fprintf(w, "active_window:   %s\n", s.ActiveWindow)
	fmt.Fprintf(w, "showing_desktop: %v\n", s.ShowingDesktop)
	fmt.Fprintf(w, "uptime_seconds:  %d\n", s.UptimeSeconds)
}

func formatCapabilities(c platform.Capabilities) string {
	var caps []string
	if c.StackingOrder {
		caps = append(caps, "stacking-order")
	}
	if c.VirtualDesktops {
		caps = append(caps, "virtual-desktops")
	}
	if c.Activities {
		caps = append(caps, "activities")
	}
	if len(caps) == 0 {
		return "none"
	}
	return strings.Join(caps, ",")
}

func printWindows(w io.Writer, data *ipc.WindowsData) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAPP\tDESKTOP\tSTATE\tTITLE")
	for _, win := range data.Windows {
		desktop := win.DesktopID
		if win.OnAllDesktops {
			desktop = "all"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", win.ID, win.AppID, desktop, windowState(win, data.Active), win.Title)
	}
	tw.Flush()
}

func windowState(win platform.Window, active platform.WindowID) string {
	var flags []string
	if win.ID == active {
		flags = append(flags, "active")
	}
	if win.Minimized {
		flags = append(flags, "min")
	}
	if win.Maximized {
		flags = append(flags, "max")
	}
	if win.Fullscreen {
		flags = append(flags, "full")
	}
	if win.DemandsAttention {
		flags = append(flags, "urgent")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func printDesktops(w io.Writer, data *ipc.DesktopsData) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " \tNUMBER\tID\tNAME")
	for _, d := range data.Desktops {
		mark := " "
		if d.ID == data.Current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", mark, d.Number, d.ID, d.Name)
	}
	tw.Flush()
}

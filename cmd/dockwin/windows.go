package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/platform"
)

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin windows [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the windows shown in the task list.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	data, err := newClient().ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(os.Stdout, data)
	}
	printWindows(os.Stdout, data)
	return 0
}

func runDesktops(args []string) int {
	fs := flag.NewFlagSet("desktops", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin desktops [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List virtual desktops. The current one is marked with '*'.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	data, err := newClient().ListDesktops()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(os.Stdout, data)
	}
	printDesktops(os.Stdout, data)
	return 0
}

func runWindowAction(action string, args []string) int {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dockwin %s <window-id>\n", action)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Window ids are listed by 'dockwin windows'.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s requires exactly one window id\n", action)
		fs.Usage()
		return 2
	}

	client := newClient()
	id := platform.WindowID(fs.Arg(0))
	var err error
	switch action {
	case "activate":
		err = client.ActivateWindow(id)
	case "toggle":
		err = client.ToggleWindow(id)
	case "minimize":
		err = client.MinimizeWindow(id)
	case "close":
		err = client.CloseWindow(id)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDesktop(args []string) int {
	fs := flag.NewFlagSet("desktop", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin desktop <desktop-id|number>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Switch virtual desktops. A bare number selects by 1-based position.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "desktop requires exactly one argument")
		fs.Usage()
		return 2
	}

	client := newClient()
	data, err := client.ListDesktops()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	id, err := resolveDesktop(data, fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.SetCurrentDesktop(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// resolveDesktop maps an argument to a desktop id. Ids win over numbers so a
// backend whose ids are digits still works.
func resolveDesktop(data *ipc.DesktopsData, arg string) (string, error) {
	for _, d := range data.Desktops {
		if d.ID == arg {
			return d.ID, nil
		}
	}
	if n, err := strconv.Atoi(arg); err == nil {
		for _, d := range data.Desktops {
			if d.Number == n {
				return d.ID, nil
			}
		}
	}
	return "", fmt.Errorf("unknown desktop: %s", arg)
}

func runShowDesktop(args []string) int {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		if len(args) == 1 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: dockwin show-desktop on|off")
			return 0
		}
		fmt.Fprintln(os.Stderr, "Usage: dockwin show-desktop on|off")
		return 2
	}
	if err := newClient().SetShowingDesktop(args[0] == "on"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

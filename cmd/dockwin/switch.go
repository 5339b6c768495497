package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/dockwin/internal/switcher"
)

func runSwitch(args []string) int {
	fs := flag.NewFlagSet("switch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	launcher := fs.String("launcher", "auto", "Menu launcher: auto, rofi, fuzzel, wofi, dmenu")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin switch [--launcher NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Pick a window from the task list in a menu launcher.")
		fmt.Fprintln(os.Stderr, "With rofi, Alt+Return minimizes and Alt+d closes the picked window.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "switch takes no arguments")
		fs.Usage()
		return 2
	}

	l, err := switcher.NewLauncher(*launcher)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if _, err := switcher.Run(newClient(), l); err != nil {
		if errors.Is(err, switcher.ErrCancelled) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

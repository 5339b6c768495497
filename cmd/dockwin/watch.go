package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/dockwin/internal/platform"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print one JSON event per line")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin watch [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Stream window and desktop events until interrupted.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asJSON := wantJSON(*jsonOut)
	enc := json.NewEncoder(os.Stdout)
	err := newClient().Subscribe(ctx, func(ev platform.Event) error {
		if asJSON {
			return enc.Encode(ev)
		}
		_, err := fmt.Fprintln(os.Stdout, formatEvent(ev))
		return err
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// formatEvent renders ev as one human-readable line.
func formatEvent(ev platform.Event) string {
	switch {
	case ev.Window != nil:
		return fmt.Sprintf("%-28s %s %s %q", ev.Kind, ev.Window.ID, ev.Window.AppID, ev.Window.Title)
	case ev.WindowID != "":
		return fmt.Sprintf("%-28s %s", ev.Kind, ev.WindowID)
	case ev.Kind == platform.NumberOfDesktopsChanged:
		return fmt.Sprintf("%-28s %d", ev.Kind, ev.Count)
	case ev.Name != "":
		return fmt.Sprintf("%-28s %s %q", ev.Kind, ev.DesktopID, ev.Name)
	case ev.DesktopID != "":
		return fmt.Sprintf("%-28s %s", ev.Kind, ev.DesktopID)
	}
	return string(ev.Kind)
}

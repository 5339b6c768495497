package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/dockwin/internal/config"
	"github.com/1broseidon/dockwin/internal/daemon"
	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/runtimepath"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "desktops":
		os.Exit(runDesktops(os.Args[2:]))
	case "activate", "toggle", "minimize", "close":
		os.Exit(runWindowAction(os.Args[1], os.Args[2:]))
	case "desktop":
		os.Exit(runDesktop(os.Args[2:]))
	case "show-desktop":
		os.Exit(runShowDesktop(os.Args[2:]))
	case "switch":
		os.Exit(runSwitch(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: dockwin <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the dockwin daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  watch               Stream window and desktop events")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  windows             List task-list windows")
	fmt.Fprintln(w, "  activate <id>       Raise and focus a window")
	fmt.Fprintln(w, "  toggle <id>         Activate a window, or minimize it when active")
	fmt.Fprintln(w, "  minimize <id>       Minimize a window")
	fmt.Fprintln(w, "  close <id>          Ask a window to close")
	fmt.Fprintln(w, "  switch              Pick a window in rofi, fuzzel, wofi or dmenu")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  desktops            List virtual desktops")
	fmt.Fprintln(w, "  desktop <id|n>      Switch to a virtual desktop")
	fmt.Fprintln(w, "  show-desktop on|off Minimize or restore the current desktop's windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write the default config file")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Serve window tools over MCP (stdio)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'dockwin <command> --help' for command-specific options.")
}

// loadConfig loads the config at path, or the default location when path is
// empty.
func loadConfig(path string) (*config.Config, error) {
	var res *config.LoadResult
	var err error
	if path == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(path)
	}
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// newClient returns an IPC client for the socket the daemon was configured
// with. A broken config falls back to the default socket.
func newClient() *ipc.Client {
	cfg, err := config.Load()
	if err != nil || cfg.IPC.Socket == "" {
		return ipc.NewClient()
	}
	path, err := runtimepath.SocketPath(cfg.IPC.Socket)
	if err != nil {
		return ipc.NewClient()
	}
	return ipc.NewClientAt(path)
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/dockwin/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Connect to the window system and serve the window model over IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx, daemon.Options{Config: cfg, Logger: logger}); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "dockwin daemon is already running")
			return 1
		}
		logger.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := newClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(os.Stdout, status)
	}
	printStatus(os.Stdout, status)
	return 0
}

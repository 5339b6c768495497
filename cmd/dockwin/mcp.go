package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/dockwin/internal/mcp"
)

// runMCP serves the MCP tools on stdio. stdout carries the protocol, so
// everything else goes to stderr.
func runMCP(args []string) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	noWait := fs.Bool("no-wait", false, "Serve even when the daemon is not reachable yet")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockwin mcp serve [--no-wait]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Serve the window tools over MCP (stdio). Tools call the running daemon.")
		fs.PrintDefaults()
	}
	if len(args) == 0 || args[0] != "serve" {
		fs.Usage()
		if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
			return 0
		}
		return 2
	}
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := newClient()
	if _, err := client.GetStatus(); err != nil {
		if !*noWait {
			logger.Error("daemon not reachable", "error", err)
			return 1
		}
		logger.Warn("daemon not reachable, tools will fail until it starts", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcp.NewServer(client).Run(ctx); err != nil {
		logger.Error("mcp server stopped", "error", err)
		return 1
	}
	return 0
}

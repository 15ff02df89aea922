package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagebuilder/internal/config"
	mcpserver "pagebuilder/internal/mcp"
)

// shutdownTimeout bounds the final save on exit.
const shutdownTimeout = 10 * time.Second

// MCPOptions configures ServeMCP.
type MCPOptions struct {
	Config  config.Config
	Logger  *slog.Logger
	Version string
	// WatchFiles are page files loaded at start and reloaded on change.
	WatchFiles []string
}

// ServeMCP runs the page builder as an MCP server on stdin/stdout until the
// client disconnects or the process is interrupted. Dirty pages are saved on
// the way out.
func ServeMCP(opts MCPOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := New(opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := a.Shutdown(sctx); err != nil {
			a.log.Error("shutdown", "err", err)
		}
	}()

	if err := a.Startup(ctx); err != nil {
		return err
	}
	for _, path := range opts.WatchFiles {
		if err := a.WatchFile(ctx, path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	srv := mcpserver.New(mcpserver.Deps{
		Workspace: a.Workspace(),
		Versions:  a.Versions(),
		Logger:    a.log,
		Version:   opts.Version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.log.Info("interrupted, shutting down")
		return nil
	}
}

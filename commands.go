package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/schema"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

var (
	watchFiles []string
	writeBack  bool
	mirrorDir  string
	listLimit  int
)

// ── mcp ──────────────────────────────────────────────────────

func registerMCPCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the page builder over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ServeMCP(app.MCPOptions{
				Config:     cfg,
				Logger:     logger,
				Version:    version,
				WatchFiles: watchFiles,
			})
		},
	}
	cmd.Flags().StringSliceVarP(&watchFiles, "watch", "w", nil, "Page JSON files to load and reload on change")
	root.AddCommand(cmd)
}

// ── Document commands (no database) ──────────────────────────

func registerDocumentCommands(root *cobra.Command) {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of page documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a page file upgrades and satisfies every invariant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPage(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d components, schema v%d)\n", args[0], len(p.Components), p.SchemaVersion)
			return nil
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Upgrade a page file to the current schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPage(args[0])
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), args[0], p)
		},
	}
	migrateCmd.Flags().BoolVar(&writeBack, "write", false, "Overwrite the file instead of printing")

	mirrorCmd := &cobra.Command{
		Use:   "mirror <file>",
		Short: "Convert a page file to another text direction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := domain.Direction(mirrorDir)
			if !dir.Valid() {
				return fmt.Errorf("--dir must be ltr or rtl, got %q", mirrorDir)
			}
			p, err := readPage(args[0])
			if err != nil {
				return err
			}
			out, _, err := document.New(service.NewCatalogRegistry()).SetDirection(p, dir)
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), args[0], out)
		},
	}
	mirrorCmd.Flags().StringVar(&mirrorDir, "dir", "rtl", "Target direction: ltr or rtl")
	mirrorCmd.Flags().BoolVar(&writeBack, "write", false, "Overwrite the file instead of printing")

	root.AddCommand(schemaCmd, validateCmd, migrateCmd, mirrorCmd)
}

func readPage(path string) (*domain.PageSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return storage.DecodePage(data)
}

func writePage(stdout io.Writer, path string, p *domain.PageSchema) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	data = append(data, '\n')
	if writeBack {
		return os.WriteFile(path, data, 0o644)
	}
	_, err = stdout.Write(data)
	return err
}

// ── Store commands ───────────────────────────────────────────

func registerStoreCommands(root *cobra.Command) {
	pagesCmd := &cobra.Command{Use: "pages", Short: "Manage stored pages"}
	pagesCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored pages, most recently updated first",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
				pages, err := a.Pages().ListPages()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tSCHEMA\tUPDATED")
				for _, p := range pages {
					fmt.Fprintf(tw, "%s\t%s\tv%d\t%s\n", p.ID, p.Title, p.SchemaVersion, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			}),
		},
		&cobra.Command{
			Use:   "export <pageId>",
			Short: "Print a stored page as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
				p, err := a.Pages().LoadPage(args[0])
				if err != nil {
					return err
				}
				return writePage(cmd.OutOrStdout(), "", p)
			}),
		},
		&cobra.Command{
			Use:   "delete <pageId>",
			Short: "Delete a stored page with its history and operation log",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
				return a.Pages().DeletePage(args[0])
			}),
		},
	)

	historyCmd := &cobra.Command{Use: "history", Short: "Manage undo history"}
	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear <pageId>",
		Short: "Drop the stored undo history of a page",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			return a.ClearHistory(args[0])
		}),
	})

	versionsCmd := &cobra.Command{Use: "versions", Short: "Inspect published versions"}
	listCmd := &cobra.Command{
		Use:   "list <pageId>",
		Short: "List published versions of a page, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			if a.Versions() == nil {
				return fmt.Errorf("versions are disabled in the config")
			}
			versions, err := a.Versions().List(args[0], listLimit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, v := range versions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Hash[:12], v.CreatedAt.Local().Format("2006-01-02 15:04"), v.Author, v.Message)
			}
			return tw.Flush()
		}),
	}
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of versions")
	versionsCmd.AddCommand(listCmd, &cobra.Command{
		Use:   "show <pageId> <hash>",
		Short: "Print a page as published in a version",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			if a.Versions() == nil {
				return fmt.Errorf("versions are disabled in the config")
			}
			p, err := a.Versions().Read(args[0], args[1])
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), "", p)
		}),
	})

	root.AddCommand(pagesCmd, historyCmd, versionsCmd)
}

type appRunE func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error

// withApp opens the app for the duration of one command.
func withApp(fn appRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		runErr := fn(ctx, a, cmd, args)
		if err := a.Shutdown(ctx); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}

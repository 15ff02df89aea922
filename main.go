package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pagebuilder/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "pagebuilder",
	Short:         "Responsive page builder core",
	Long:          "pagebuilder edits responsive page documents with undo history, right-to-left mirroring and schema migration, and serves them to agents over MCP",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		level, err := cfg.Level()
		if err != nil {
			return err
		}
		logger = newLogger(level)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PAGEBUILDER_CONFIG"), "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	registerMCPCommand(rootCmd)
	registerDocumentCommands(rootCmd)
	registerStoreCommands(rootCmd)
}

// newLogger writes to stderr; stdout carries MCP traffic.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pagebuilder:", err)
		os.Exit(1)
	}
}

// Package cli implements the tsp-router command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tsp-router/internal/config"
	"tsp-router/internal/database"
	"tsp-router/internal/logging"
)

const appName = "tsp-router"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
	verbose    bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: logging.New(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Plan delivery tours from a depot",
		Long:         `tsp-router orders a list of addresses into a round trip from a fixed depot using a nearest-neighbor or minimum-spanning-tree heuristic.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a TOML config file (default ~/.tsp-router/config.toml if present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if c.verbose {
			c.SetLogLevel(LogDebug)
		}
		cmd.SetContext(logging.WithLogger(cmd.Context(), c.Logger))
	}

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.solveCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// loadConfig reads the config named by --config, falling back to the default
// location. The log level from the file applies unless --verbose was given.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = database.GetDefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if !c.verbose {
		c.SetLogLevel(logging.ParseLevel(cfg.Log.Level))
	}
	if path != "" {
		c.Logger.Debug("Loaded config", "path", path)
	}
	return cfg, nil
}

// Execute runs the CLI with the process arguments. Long-running commands
// stop when ctx is cancelled.
func Execute(ctx context.Context) error {
	c := New(os.Stderr, LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}

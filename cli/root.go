// Package cli implements the budgetctl command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yomi/budget-engine/config"
	"github.com/yomi/budget-engine/logger"
	"github.com/yomi/budget-engine/store/sqlite"
	"github.com/yomi/budget-engine/tax"
)

// App holds the state shared by every command. Config and Logger are
// populated by the root command before any subcommand runs.
type App struct {
	ConfigPath string
	DBPath     string
	LogLevel   string

	Config config.Config
	Logger *zap.Logger

	// IsTerminal reports whether stderr is a terminal. When it is not,
	// logs are written as JSON whatever the configured mode.
	IsTerminal func() bool

	store *sqlite.Store
}

// NewRootCmd creates the top-level "budgetctl" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Film budget tax calculator and tree inspector",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", "budget.toml", "TOML config file")
	flags.StringVar(&app.DBPath, "db", "", "SQLite database path (default from config)")
	flags.StringVar(&app.LogLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newCalcCmd(app),
		newSchemesCmd(app),
		newTreeCmd(app),
		newOvertimeCmd(app),
		newAuditCmd(app),
	)
	return root
}

func (a *App) init() error {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	a.Config = cfg

	if a.Logger == nil {
		mode := cfg.Log.Mode
		if a.IsTerminal != nil && !a.IsTerminal() {
			mode = "production"
		}
		if a.Logger, err = logger.New(mode, a.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Store opens the database named by --db or the config, once.
func (a *App) Store() (*sqlite.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.DBPath
	if path == "" {
		path = a.Config.Database.Path
	}
	s, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	a.store = s
	return s, nil
}

// Catalog returns the stored catalog when --db is given, else the system
// schemes only.
func (a *App) Catalog(cmd *cobra.Command) (*tax.Catalog, error) {
	if !cmd.Flags().Changed("db") {
		return tax.NewSystemCatalog(), nil
	}
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	return s.Catalog(cmd.Context())
}

// Close releases the database, if one was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Package cli implements the careerplanner command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/career-planner/internal/logging"
	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/store"
)

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	configPath string
	envFile    string

	cfg    *model.AppConfig
	logger *slog.Logger
}

// NewRootCommand builds the careerplanner command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "careerplanner",
		Short: "Plan career goals, milestones and tasks",
		Long: `careerplanner serves the goal/milestone/task API and reports progress
summaries. It also manages the webhook signing secret and lists notices
the parent app never received.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCommand(a),
		newSummaryCommand(a),
		newSecretCommand(a),
		newDeadLettersCommand(a),
	)
	return root
}

// load reads the env file, the config and builds the logger. A missing
// env file is fine; variables already set in the environment win.
func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log)
	slog.SetDefault(a.logger)
	return nil
}

// openStore opens the configured database, creating its directory.
func (a *app) openStore() (*store.SQLiteStore, error) {
	path := a.cfg.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return store.NewSQLiteStore(path)
}

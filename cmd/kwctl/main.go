// Command kwctl runs keyword maintenance against the configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agenthands/kwmerge/internal/config"
	"github.com/agenthands/kwmerge/internal/core"
	"github.com/agenthands/kwmerge/internal/driver"
	"github.com/agenthands/kwmerge/internal/observability"
)

type app struct {
	cfgFile    string
	driverName string
	outputJSON bool
	noColor    bool
	verbose    bool

	cfg    *config.Config
	logger zerolog.Logger
	store  driver.KeywordStore
	engine *core.Engine
	ui     *UI
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "kwctl",
		Short: "Keyword deduplication and fuzzy matching tools",
		Long: `kwctl inspects and cleans up the keyword vocabulary that tags answers.

Use it to:
- Score strings and match input against the stored vocabulary
- Review merge suggestions and keyword families
- Merge variant keywords and deduplicate single answers
- Remove keywords that no longer tag any answer`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(out)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close(context.Background())
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (default: $CONFIG_PATH or config/config.toml)")
	root.PersistentFlags().StringVar(&a.driverName, "driver", "", "store driver: sqlite, postgres, memgraph or memory")
	root.PersistentFlags().BoolVar(&a.outputJSON, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newSimilarityCmd(a),
		newMatchCmd(a),
		newSuggestCmd(a),
		newFamiliesCmd(a),
		newMergeCmd(a),
		newDedupeCmd(a),
		newAttachCmd(a),
		newStatsCmd(a),
		newCleanupCmd(a),
	)
	return root
}

func (a *app) setup(out io.Writer) error {
	path := a.cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}

	cfg, _, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.driverName != "" {
		cfg.Store.Driver = a.driverName
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	a.cfg = cfg
	a.logger = observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      os.Stderr,
		ServiceName: "kwctl",
	})
	a.ui = NewUI(out, a.outputJSON, a.noColor)
	return nil
}

// open connects the store on first use; similarity scoring never needs it.
func (a *app) open(ctx context.Context) (*core.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	store, err := driver.Open(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.engine = core.NewEngine(store, a.cfg.Matching, a.logger)
	return a.engine, nil
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

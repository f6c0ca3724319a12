package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/journal"
	"github.com/xraph/journal/internal/config"
	kafkahook "github.com/xraph/journal/kafka_hook"
	"github.com/xraph/journal/store"
	"github.com/xraph/journal/store/mongo"
	"github.com/xraph/journal/store/postgres"
	"github.com/xraph/journal/store/sqlite"
)

var (
	cfgFile    string
	envFile    string
	jsonOutput bool

	// Set by the root PersistentPreRunE for every subcommand.
	engine *journal.Journal
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "Operate a hash-chained double-entry journal",
	Long: `journal works against a journal store (postgres, sqlite or mongo).

Every command brings the schema up to date before it runs.

Example:
  journal verify
  journal checkpoint create acc_01h... --as-of 2024-03-31
  journal balance acc_01h... --as-of 2024-03-31T23:59:59Z`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile, envFile)
		if err != nil {
			return err
		}
		logger = cfg.Logger(os.Stderr)
		slog.SetDefault(logger)

		s, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}

		opts := []journal.Option{
			journal.WithLogger(logger),
			journal.WithVerifyPageSize(cfg.Verify.PageSize),
			journal.WithVerifyConcurrency(cfg.Verify.Concurrency),
		}
		if len(cfg.Kafka.Brokers) > 0 {
			w := kafkahook.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			opts = append(opts, journal.WithPlugin(kafkahook.New(w, kafkahook.WithLogger(logger))))
		}

		// shutdown stops the engine even when Start fails.
		engine = journal.New(s, opts...)
		return engine.Start(cmd.Context())
	},
}

// shutdown stops the engine opened by PersistentPreRunE, if any.
func shutdown() error {
	if engine == nil {
		return nil
	}
	return engine.Stop()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file (default is ./.env when present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "write results as JSON")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(ledgerCmd)
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.DSN, mongodriver.WithDatabase(cfg.Database))
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

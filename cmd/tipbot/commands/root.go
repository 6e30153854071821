package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"l2-tipbot/internal/config"
	"l2-tipbot/internal/logging"
)

var (
	envFile     string
	actorID     string
	dataDir     string
	useMemory   bool
	postgresDSN string
	logLevel    string

	cfg    config.Config
	logger *zap.Logger
)

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:           "tipbot",
		Short:         "Custodial Layer 2 tipping wallet for chat communities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			var err error
			if cfg, err = config.FromEnv(); err != nil {
				return err
			}
			applyFlags(cmd)

			logger, err = logging.New(logging.Config{
				Environment: cfg.Environment,
				Level:       cfg.LogLevel,
				File:        cfg.LogFile,
			})
			return err
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of KEY=VALUE defaults")
	root.PersistentFlags().StringVar(&actorID, "as", "local", "user id the command runs as")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "embedded storage directory (overrides DATA_DIR)")
	root.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "keep all state in memory (overrides USE_MEMORY)")
	root.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (overrides POSTGRES_DSN)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.SetHelpCommand(helpCmd())
	root.AddCommand(
		balanceCmd(),
		sendCmd(),
		unlockCmd(),
		tokensCmd(),
		serveCmd(),
		seedTokensCmd(),
		migrateCmd(),
		historyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("use-memory") {
		cfg.UseMemory = useMemory
	}
	if flags.Changed("postgres-dsn") {
		cfg.PostgresDSN = postgresDSN
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openApp validates the configuration and wires the command stack.
func openApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return newApp(ctx, cfg, logger)
}

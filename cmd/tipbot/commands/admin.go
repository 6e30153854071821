package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/registry"
	"l2-tipbot/internal/reporting"
	"l2-tipbot/internal/storage/migrations"
	pgstore "l2-tipbot/internal/storage/postgres"
)

func seedTokensCmd() *cobra.Command {
	var fromNetwork bool
	cmd := &cobra.Command{
		Use:   "seed-tokens [file]",
		Short: "Register supported tokens from a YAML file or the network",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !fromNetwork {
				return errors.New("give a tokens file or --from-network")
			}

			var tokens []domain.Token
			if len(args) == 1 {
				var err error
				if tokens, err = registry.LoadSeedFile(args[0]); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			// The seed file is applied explicitly below, not as a side effect
			// of wiring.
			cfg.TokensFile = ""
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.registry.Seed(ctx, tokens)
			if err != nil {
				return err
			}
			if fromNetwork {
				n, err := a.registry.SyncFromNetwork(ctx, a.client)
				if err != nil {
					return err
				}
				added += n
			}

			logger.Info("tokens seeded", zap.Int("added", added))
			fmt.Fprintf(cmd.OutOrStdout(), "%d tokens added\n", added)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromNetwork, "from-network", false, "also register every token the network lists")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PostgresDSN == "" && cfg.ClickhouseDSN == "" {
				return errors.New("nothing to migrate: set POSTGRES_DSN or CLICKHOUSE_DSN")
			}

			ctx, cancel := signalContext()
			defer cancel()

			if cfg.PostgresDSN != "" {
				pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
				if err != nil {
					return err
				}
				n, err := migrations.RunPostgresMigrations(ctx, pool)
				pool.Close()
				if err != nil {
					return fmt.Errorf("postgres migrations: %w", err)
				}
				logger.Info("postgres migrations applied", zap.Int("applied", n))
			}

			if cfg.ClickhouseDSN != "" {
				conn, n, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
				if err != nil {
					return fmt.Errorf("clickhouse migrations: %w", err)
				}
				_ = conn.Close()
				logger.Info("clickhouse migrations applied", zap.Int("applied", n))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the execution ledger of the --as user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "md" && format != "csv" {
				return fmt.Errorf("unknown format %q (md or csv)", format)
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := reporting.NewGenerator(a.stores.executions).History(ctx, actorID)
			if err != nil {
				return err
			}

			out := reporting.RenderMarkdown(h)
			if format == "csv" {
				if out, err = reporting.RenderCSV(h); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "output format: md or csv")
	return cmd
}

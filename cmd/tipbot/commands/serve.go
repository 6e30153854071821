package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"l2-tipbot/internal/discord"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Discord interactions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []discord.ServerOption{
				discord.WithEndpoint(cfg.InteractEndpoint),
				discord.WithLogger(logger),
			}
			if cfg.UseSecurity {
				verifier, err := discord.NewVerifier(cfg.DiscordPublicKey)
				if err != nil {
					return err
				}
				opts = append(opts, discord.WithVerifier(verifier))
			} else {
				logger.Warn("request signature verification disabled")
			}

			webhook := discord.NewWebhookClient(cfg.DiscordAPIBase, cfg.DiscordApplicationID)
			server := discord.NewServer(a.handler, webhook, opts...)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Listen(cfg.ListenAddr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Error("shutdown", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kashguard/go-market-client/internal/devserver"
)

func newDevServerCmd(a *app) *cobra.Command {
	var (
		addr   string
		secret string
	)
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run the local stub backend and fullnode facade",
		Long:  "Runs an in-memory marketplace backend plus a fullnode facade on one port,\nenough to exercise every client flow without external services.",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := devserver.New(secret, log.Logger)

			go func() {
				log.Info().Str("addr", addr).Msg("Dev server listening")
				if err := server.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Dev server failed")
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			log.Info().Msg("Received interrupt signal, shutting down...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Echo.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":4000", "Listen address")
	cmd.Flags().StringVar(&secret, "secret", "dev-secret", "JWT signing secret")
	return cmd
}

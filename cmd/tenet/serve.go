package tenet

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/server"
)

var (
	serveHost string
	servePort int
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server providing REST access to the fact store: remember,
recall (both tiers), explain, changes and sweep.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "server host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "gin mode (debug, release, test)")
}

func runServe(cmd *cobra.Command, args []string) error {
	client, cfg, logger, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveMode != "" {
		cfg.Server.Mode = serveMode
	}

	srv := server.New(cfg, client, logger)
	srv.Setup()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

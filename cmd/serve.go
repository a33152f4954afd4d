package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runanywhere/nativeaudio/internal/server"
	"github.com/runanywhere/nativeaudio/internal/service"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the bridge methods over HTTP",
	Long: `Start an HTTP server exposing every bridge method under
POST /api/bridge/{method}, plus convenience routes for recording, playback
and streaming finished recordings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		srv := server.New(service.New(cfg), host, port)

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case err := <-errChan:
			if err != nil {
				srv.Shutdown(context.Background())
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case sig := <-sigChan:
			slog.Info("Shutting down server", "signal", sig.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "address to listen on (overrides config)")
	serveCmd.Flags().Int("port", 0, "port for the server (overrides config)")
}

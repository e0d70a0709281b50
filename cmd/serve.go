package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/api"
	"github.com/tablewright/tablewright/internal/lock"
	"github.com/tablewright/tablewright/internal/ws"
	"github.com/tablewright/tablewright/web"
)

var servePort int
var serveDevMode bool
var serveLockFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI server",
	Long:  `Start the diagram editor on localhost. Diagram changes and pending confirmations are pushed to the browser over a WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := lock.Acquire(serveLockFile); err != nil {
			return err
		}
		defer lock.Release(serveLockFile)

		eng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())
		logger := eng.Logger

		port := eng.Config.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		devMode := eng.Config.Server.DevMode || serveDevMode

		hub := ws.NewHub(logger)
		go hub.Run(ctx)

		distFS, err := fs.Sub(web.DistFS, "dist")
		if err != nil {
			return fmt.Errorf("loading embedded web UI: %w", err)
		}

		srv := api.New(eng, logger, port,
			api.WithStaticFS(distFS),
			api.WithHub(hub),
			api.WithDevMode(devMode),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "Tablewright web UI: http://localhost:%d\n", port)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8230, "port for the web UI server (default: server.port)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	serveCmd.Flags().StringVar(&serveLockFile, "lock-file", "", "single-instance lock file (default: ~/.tablewright/serve.lock)")
	rootCmd.AddCommand(serveCmd)
}

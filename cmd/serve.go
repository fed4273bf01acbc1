package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowgen/internal/journal"
	"github.com/ziadkadry99/flowgen/internal/server"
	"github.com/ziadkadry99/flowgen/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser UI and generation API",
	Long:  `Starts an HTTP server with the flowchart UI, a REST API and a websocket channel that streams generation progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort == 0 {
			servePort = cfg.Server.Port
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		srv := server.New(server.Config{
			Port:     servePort,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, p.database)

		ui := web.New(p.newGenerator)
		ui.RegisterRoutes(srv.Router(), srv.API())
		if p.journal != nil {
			journal.RegisterRoutes(srv.API(), p.journal)
		}

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "flowgen %s on http://localhost:%d\n", Version, servePort)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", cfg.Provider, cfg.Model)
		fmt.Fprintf(os.Stderr, "  Renderer: %s\n", p.renderer.Name())
		if p.database != nil {
			fmt.Fprintf(os.Stderr, "  Journal:  %s\n", p.database.Path())
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/handsense/internal/config"
	"github.com/banshee-data/handsense/internal/dashboard"
	"github.com/banshee-data/handsense/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read the glove and serve the debug pages until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runSession(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newSession(cfg *config.Config) (*session.Session, error) {
	factory, err := session.NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	return session.New(cfg, factory)
}

func runSession(ctx context.Context, cfg *config.Config) error {
	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create a wait group for the session and HTTP server routines
	var wg sync.WaitGroup
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		// a session that ends on its own takes the HTTP server down with it
		defer cancel()
		runErr = s.Run(ctx)
		log.Print("session routine terminated")
	}()

	if listen := cfg.GetListen(); listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, listen, s)
		}()
	}

	wg.Wait()
	if runErr == nil {
		log.Printf("Graceful shutdown complete")
	}
	return runErr
}

func serveDebug(ctx context.Context, listen string, src dashboard.Source) {
	mux := http.NewServeMux()
	dashboard.AttachAdminRoutes(mux, src)

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("debug pages on http://%s/debug/", listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/tracker/internal/api"
	"github.com/fentz26/tracker/internal/audit"
	"github.com/fentz26/tracker/internal/autosave"
	"github.com/fentz26/tracker/internal/manager"
	"github.com/fentz26/tracker/internal/store"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the tracker daemon",
	Long:  `Starts the tracker daemon, which loads saved items from SQLite and serves the HTTP API.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	log.Println("Starting tracker daemon...")

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing database connection...")
		if err := s.Close(); err != nil {
			log.Printf("Database close error: %v", err)
		}
	}()

	// Restore saved state
	mgr := manager.New()
	snap, err := s.LoadSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := mgr.Restore(snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	log.Printf("Restored %d items from %s", snap.Len(), cfg.DBPath)

	// Create service and server
	journal := audit.NewJournal(s, cfg.Audit.Enabled)
	service := api.NewService(mgr, s, journal, !cfg.Autosave.Enabled)
	server := api.NewServer(service, s, cfg.Listen)

	var saver *autosave.Saver
	if cfg.Autosave.Enabled {
		saver = autosave.New(service, cfg.Autosave.Interval)
		saver.Start()
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	var runErr error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			runErr = err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Saving state...")
	if saver != nil {
		err = saver.Stop(shutdownCtx)
	} else {
		err = service.Flush(shutdownCtx)
	}
	if err != nil {
		log.Printf("Final save error: %v", err)
		if runErr == nil {
			runErr = err
		}
	}

	log.Println("Shutdown complete")
	return runErr
}

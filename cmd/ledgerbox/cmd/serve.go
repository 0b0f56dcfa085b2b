package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerbox/ledgerbox/internal/api"
	"github.com/ledgerbox/ledgerbox/internal/cache"
	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/searchsvc"
	"github.com/ledgerbox/ledgerbox/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledgerbox search API server",
	Long: `Run the HTTP API server exposing email search, typeahead
suggestions, search history, and saved searches.

The server listens on the configured port (default: 8080). Set
[server] api_key in config.toml to require authentication.

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dbPath := cfg.DatabasePath()
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	if err := s.InitSchema(); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	engine := query.NewSQLiteEngine(s.DB())
	defer engine.Close()

	svc := searchsvc.New(engine).
		WithLogger(logger).
		WithCache(cache.New[*searchsvc.Response](cfg.CacheTTL(), cfg.Search.CacheCapacity)).
		WithPageSize(cfg.Search.PageSize)

	apiServer := api.NewServer(cfg, svc, s, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	fmt.Printf("ledgerbox server started\n")
	fmt.Printf("  API server: http://%s\n", net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.APIPort)))
	fmt.Printf("  Database:   %s\n", dbPath)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	select {
	case <-cmd.Context().Done():
		logger.Info("received shutdown signal")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		return err
	}

	fmt.Println("\nShutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	fmt.Println("Shutdown complete.")
	return nil
}

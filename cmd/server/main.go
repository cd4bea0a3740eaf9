/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the strategic planning engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Pick a strategy generator (template or remote HTTP backend)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port          HTTP server port (default: 8080)
  -db            SQLite database path (default: strategy.db)
                 Use ":memory:" for in-memory database
  -generator-url Base URL of a remote drafting backend. When empty the
                 deterministic template generator is used.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and the template generator
  ./server -db="./data/strategy.db"

  # Run against a remote drafting backend
  ./server -generator-url="http://localhost:9090"

ENVIRONMENT:
  No environment variables currently. All config via flags.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/strategy-engine/api"
	"github.com/warp/strategy-engine/generator"
	"github.com/warp/strategy-engine/planning"
	"github.com/warp/strategy-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "strategy.db", "SQLite database path")
	generatorURL := flag.String("generator-url", "", "Remote drafting backend URL (empty = template generator)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Pick a generator
	var gen planning.StrategyGenerator
	if *generatorURL != "" {
		gen = generator.NewHTTPGenerator(*generatorURL)
		log.Printf("Using drafting backend at %s", *generatorURL)
	} else {
		gen = generator.NewTemplateGenerator()
		log.Printf("Using template generator (no drafting backend configured)")
	}

	// Initialize handler and router
	handler := api.NewHandler(store, gen)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// Package cmd provides the folio command line interface.
//
// Commands:
//   - serve: HTTP API server for the portfolio chatbot
//   - index: rebuild the vector index from the profile corpus
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/amariwest/folio/internal/log"
)

// Execute is the main entry point for the folio CLI.
func Execute() error {
	logger := initLogger()
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "index":
		return runIndex(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// initLogger builds the process logger. The DEBUG environment variable
// enables debug-level output.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("folio - portfolio chatbot backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  folio serve [addr]   Start the HTTP API server (default: localhost:8080)")
	fmt.Println("  folio index [-force] Rebuild the vector index from the profile corpus")
	fmt.Println("  folio --version      Show version information")
	fmt.Println("  folio --help         Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY       Chat/embedding provider key (provider=openai)")
	fmt.Println("  GEMINI_API_KEY       Chat/embedding provider key (provider=googleai)")
	fmt.Println("  DATABASE_URL         Postgres connection string (overrides FOLIO_POSTGRES_*)")
	fmt.Println("  DEBUG                Enable debug logging")
	fmt.Println()
	fmt.Println("Without a provider key or database, the server still runs and answers")
	fmt.Println("from the built-in rule-based responder.")
}

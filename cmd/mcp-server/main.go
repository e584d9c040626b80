// Package main runs the curation tools over MCP stdio. It needs no external services: aggregates
// and the submission ledger live in a SQLite file under the data directory.
//
// Usage:
//
//	mcp-server          serve MCP on stdin/stdout
//	mcp-server export   write the submission ledger to <data dir>/exports
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/variant-curation-server/internal/app"
	"github.com/variant-curation-server/internal/config"
	"github.com/variant-curation-server/internal/logging"
	"github.com/variant-curation-server/internal/mcp"
)

func main() {
	lite := config.LoadLiteConfig()
	if err := lite.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	cfg := lite.Config()
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config.NewStaticManager(cfg), logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export":
			path, err := application.ExportLedger(ctx, lite.ExportDir())
			if err != nil {
				application.Close()
				log.Fatalf("Export failed: %v", err)
			}
			fmt.Println(path)
			return
		default:
			application.Close()
			log.Fatalf("Unknown command %q (expected: export)", os.Args[1])
		}
	}

	logger.WithField("data_dir", lite.DataDir).Info("Starting variant curation MCP server")

	server, err := mcp.NewServer(application.Service, logger)
	if err != nil {
		application.Close()
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		application.Close()
		log.Fatalf("MCP server failed: %v", err)
	}
}

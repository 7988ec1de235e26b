package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"homebudget/internal/amqp"
	"homebudget/internal/config"
	"homebudget/internal/export"
	applog "homebudget/internal/log"
)

// insights-worker drains the alert digest queue and appends each digest
// to a Google Sheets spreadsheet.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "insights-worker"})
	applog.SetDefault(logger)

	logger.Info("Starting insights-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Sheets configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := export.NewSheetsWriter(ctx, export.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets writer", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets writer initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	go func() {
		err := amqpClient.ConsumeAlertDigests(ctx, func(msg *amqp.AlertDigestMessage) error {
			handleCtx, handleCancel := context.WithTimeout(ctx, 30*time.Second)
			defer handleCancel()
			return writer.AppendDigest(handleCtx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Digest consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give the in-flight append a moment to finish
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}

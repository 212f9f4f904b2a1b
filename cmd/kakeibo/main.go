package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/cli"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The AMQP publisher is optional. Without it transactions stay local
	// and the ledger mirror never sees them.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("Ledger mirror publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Ledger mirror publishing disabled - no AMQP_URL provided")
	}

	authSvc := auth.NewService(
		[]byte(cfg.SessionSecret),
		cfg.AuthIssuer,
		cfg.AuthBaseURL,
		cfg.LinkTTL,
		cfg.SessionTTL,
		nil,
	)

	txSvc := services.NewTransactionService(repo, amqpClient)
	catSvc := services.NewCategoryService(repo)
	budSvc := services.NewBudgetService(repo)
	csvSvc := services.NewCSVService(txSvc, catSvc, budSvc)

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, txSvc, catSvc, budSvc, csvSvc)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting kakeibo server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/worker"

	"golang.org/x/sync/errgroup"
)

const recategorizeJobName = "recategorize"

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting bilancio-worker", "backend", cfg.DataBackend)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer res.Close()

	categorization := services.NewCategorizationService(res.Store)

	// The sheet mirror is optional; without it the worker only recategorizes.
	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.WithComponent(log.ComponentSheets).Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	importWorker := worker.NewImportWorker(res.Store, categorization, exporter)
	recategorize := worker.RecategorizeJob(categorization)

	scheduler := worker.NewScheduler(cfg.Timezone, cfg.JobTimeout)
	if cfg.RecategorizeSchedule != "" {
		if err := scheduler.Add(recategorizeJobName, cfg.RecategorizeSchedule, recategorize); err != nil {
			logger.Error("Invalid recategorize schedule", log.FieldError, err)
			os.Exit(1)
		}
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient = c
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - import notifications will not be consumed")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler did not stop cleanly", log.FieldError, err)
		}
	})

	// Catch up on rows imported while the worker was down.
	scheduler.RunNow(recategorizeJobName, recategorize)
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeTransactionsImported(gctx, importWorker.HandleTransactionsImported)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithComponent(log.ComponentAMQP).Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

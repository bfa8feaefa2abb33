package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/queue"
	"github.com/adverant/nexus/pdf-extractor/internal/storage"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued extraction jobs",
	Long: `Consume extraction jobs from the Redis queue (asynq), write finished
workbooks back to Redis and record job status in PostgreSQL when
DATABASE_URL is set.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntP("concurrency", "c", 0, "concurrent jobs (overrides WORKER_CONCURRENCY)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger("Main")
	if !cfg.QueueEnabled() {
		return fmt.Errorf("REDIS_URL is required for the worker")
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.WorkerConcurrency = n
	}

	ctx, stop := signalContext()
	defer stop()

	log.Info("Connecting to storage...", "postgres", cfg.DatabaseURL != "")
	sm, err := storage.NewStorageManager(ctx, cfg.DatabaseURL, cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return err
	}
	defer func() {
		if err := sm.Close(); err != nil {
			log.Error("Error closing storage manager", "error", err)
		}
	}()

	proc, engines, err := buildProcessor(cfg, sm)
	if err != nil {
		return err
	}
	defer engines.Close()

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		Results:           sm,
		ProcessingTimeout: int64(cfg.ProcessingTimeout),
		ResultTTL:         cfg.ResultTTL(),
	})
	if err != nil {
		return err
	}

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	log.Info("PDF extractor worker is ready",
		"consumer", consumer.GetStatistics(),
		"engines", engines.Names(),
		"profiles", proc.Profiles(),
		"events", sm.Events(),
	)

	<-ctx.Done()
	log.Info("Shutdown signal received, draining jobs...")

	if err := consumer.Stop(ctx); err != nil {
		log.Error("Error stopping queue consumer", "error", err)
	}
	log.Info("Shutdown complete")
	return nil
}

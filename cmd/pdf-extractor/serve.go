package main

import (
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/queue"
	"github.com/adverant/nexus/pdf-extractor/internal/server"
	"github.com/adverant/nexus/pdf-extractor/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Routes:
  GET  /health                    liveness, engines, profiles, memory
  POST /process-pdf               extract an upload, answer with base64 XLSX
  POST /api/v1/ocr/process        same as /process-pdf
  POST /convert                   TIFF to PDF download
  POST /convert/info              TIFF metadata
  POST /api/v1/jobs               enqueue an extraction (needs REDIS_URL)
  GET  /api/v1/jobs/:id           job status
  GET  /api/v1/jobs/:id/result    finished XLSX download`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger("Main")
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	ctx, stop := signalContext()
	defer stop()

	sm, err := storage.NewStorageManager(ctx, cfg.DatabaseURL, cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return err
	}
	defer sm.Close()

	proc, engines, err := buildProcessor(cfg, sm)
	if err != nil {
		return err
	}
	defer engines.Close()

	opts := server.Options{
		Port:        cfg.Port,
		Mode:        cfg.Mode,
		APIKey:      cfg.APIKey,
		Version:     version,
		MaxFileSize: cfg.MaxFileSize,
		Extractor:   proc,
		Backend:     sm,
	}

	if cfg.QueueEnabled() {
		producer, err := queue.NewProducer(&queue.ProducerConfig{
			RedisURL:  cfg.RedisURL,
			QueueName: cfg.QueueName,
			Timeout:   cfg.ProcessingTimeoutDuration(),
		})
		if err != nil {
			return err
		}
		defer producer.Close()
		opts.Queue = producer
		opts.Jobs = sm
	} else {
		log.Warn("REDIS_URL not set; async job routes disabled")
	}

	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	log.Info("PDF extractor API starting",
		"port", cfg.Port,
		"engines", engines.Names(),
		"profiles", proc.Profiles(),
		"jobs", cfg.QueueEnabled(),
		"version", version,
	)
	return srv.Run(ctx)
}

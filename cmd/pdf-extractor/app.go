package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adverant/nexus/pdf-extractor/internal/config"
	"github.com/adverant/nexus/pdf-extractor/internal/engine"
	"github.com/adverant/nexus/pdf-extractor/internal/processor"
	"github.com/adverant/nexus/pdf-extractor/internal/storage"
)

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildEngines registers Tesseract and, when REMOTE_OCR_URL is set, the
// remote sidecar model.
func buildEngines(cfg *config.Config) (*engine.Registry, error) {
	reg := engine.NewRegistry()
	languages := engine.ParseLanguages(cfg.TesseractLanguages)

	tess, err := engine.NewTesseractEngine(&engine.TesseractConfig{
		Languages: languages,
		PoolSize:  cfg.TesseractPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Tesseract: %w", err)
	}
	if err := reg.Register(tess); err != nil {
		tess.Close()
		return nil, err
	}

	if cfg.RemoteOCRURL != "" {
		remote, err := engine.NewRemoteEngine(&engine.RemoteConfig{
			BaseURL:   cfg.RemoteOCRURL,
			Model:     cfg.RemoteOCREngine,
			Languages: languages,
			Timeout:   cfg.RemoteOCRTimeoutDuration(),
		})
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("failed to initialize remote OCR engine: %w", err)
		}
		if err := reg.Register(remote); err != nil {
			reg.Close()
			return nil, err
		}
	}

	return reg, nil
}

// buildProcessor wires engines and profiles into a document processor.
// sm may be nil.
func buildProcessor(cfg *config.Config, sm *storage.StorageManager) (*processor.DocumentProcessor, *engine.Registry, error) {
	profiles, err := config.LoadProfiles(cfg)
	if err != nil {
		return nil, nil, err
	}

	engines, err := buildEngines(cfg)
	if err != nil {
		return nil, nil, err
	}

	proc, err := processor.NewDocumentProcessor(&processor.ProcessorConfig{
		Engines:         engines,
		Profiles:        profiles,
		DefaultEngine:   cfg.DefaultEngine,
		MaxFileSize:     cfg.MaxFileSize,
		PageConcurrency: cfg.PageConcurrency,
		StorageManager:  sm,
	})
	if err != nil {
		engines.Close()
		return nil, nil, err
	}
	return proc, engines, nil
}

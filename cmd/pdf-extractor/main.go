/**
 * PDF Extractor - Main Entry Point
 *
 * Rebuilds the text and table structure of scanned PDF and TIFF documents
 * from positioned OCR words and writes one spreadsheet sheet per page.
 *
 * Commands:
 * - serve:   HTTP API (synchronous extraction, TIFF conversion, async jobs)
 * - worker:  asynq consumer for queued extraction jobs
 * - extract: one-shot extraction of a local file
 * - convert: TIFF to PDF conversion of a local file
 * - info:    TIFF metadata
 */

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdf-extractor/internal/config"
	"github.com/adverant/nexus/pdf-extractor/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pdf-extractor",
	Short: "Reconstruct tables from scanned documents into spreadsheets",
	Long: `pdf-extractor runs OCR over scanned PDF and TIFF documents, rebuilds the
text lines and table columns from word positions and writes an XLSX
workbook with one sheet per page.

Configuration comes from the environment (optionally seeded from
.env.pdfextractor); calibration profiles from CALIBRATION_FILE.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or console (overrides LOG_FORMAT)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", config.EnvFile, err)
	}

	loaded, err := config.LoadConfig()
	if err != nil {
		return err
	}
	cfg = loaded

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	format, _ := cmd.Flags().GetString("log-format")
	if format == "" {
		format = cfg.LogFormat
	}

	// One-shot commands keep stdout for their output.
	out := os.Stdout
	if cmd.Annotations["output"] == "stdout" {
		out = os.Stderr
	}
	return logging.SetupWriter(out, level, format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/processor"
	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
	"github.com/adverant/nexus/pdf-extractor/internal/sheet"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a local PDF or TIFF into an XLSX workbook",
	Long: `Extract a local PDF or TIFF into an XLSX workbook.

Examples:
  pdf-extractor extract scan.pdf
  pdf-extractor extract scan.tif --profile mono -o out.xlsx
  pdf-extractor extract scan.pdf --text
  pdf-extractor extract scan.pdf --ground-truth expected.json`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"output": "stdout"},
	RunE:        runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("engine", "", "OCR engine (default: DEFAULT_ENGINE)")
	extractCmd.Flags().String("profile", "", "calibration profile (default: default)")
	extractCmd.Flags().StringP("output", "o", "", "workbook path (default: <name>_OCR.xlsx next to the input)")
	extractCmd.Flags().Bool("text", false, "print the reconstructed text to stdout")
	extractCmd.Flags().Bool("json", false, "print per-page results as JSON to stdout")
	extractCmd.Flags().String("ground-truth", "", "JSON ground truth to validate the result against")
	extractCmd.Flags().Float64("code-ratio", reconstruct.SpaceRatioMono, "space ratio used to measure item code spacing")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger("Extract")
	input := args[0]

	engineName, _ := cmd.Flags().GetString("engine")
	profileName, _ := cmd.Flags().GetString("profile")
	output, _ := cmd.Flags().GetString("output")
	printText, _ := cmd.Flags().GetBool("text")
	printJSON, _ := cmd.Flags().GetBool("json")
	gtPath, _ := cmd.Flags().GetString("ground-truth")
	codeRatio, _ := cmd.Flags().GetFloat64("code-ratio")

	if codeRatio <= 0 {
		return fmt.Errorf("invalid code ratio: %v (must be positive)", codeRatio)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	proc, engines, err := buildProcessor(cfg, nil)
	if err != nil {
		return err
	}
	defer engines.Close()

	ctx, stop := signalContext()
	defer stop()

	result, err := proc.ProcessDocument(ctx, &processor.ProcessRequest{
		JobID:      uuid.NewString(),
		Filename:   filepath.Base(input),
		FileBuffer: data,
		Engine:     engineName,
		Profile:    profileName,
	})
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(filepath.Dir(input), sheet.OutputFilename(input))
	}
	if err := os.WriteFile(output, result.Workbook, 0o644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	log.Info("Workbook written",
		"output", output,
		"pages", result.PageCount(),
		"engine", result.Engine,
		"profile", result.Profile,
		"duration", (time.Duration(result.ProcessingTimeMs) * time.Millisecond).String(),
	)

	profile, _ := proc.Profile(result.Profile)

	if printText {
		fmt.Fprintln(cmd.OutOrStdout(), result.Text(profile.SpaceRatio))
	}
	if printJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}

	if gtPath != "" {
		return validateAgainst(cmd, gtPath, result, profile.SpaceRatio, codeRatio)
	}
	return nil
}

func validateAgainst(cmd *cobra.Command, path string, result *processor.ProcessResult, textRatio, codeRatio float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ground truth: %w", err)
	}
	defer f.Close()

	gt, err := processor.LoadGroundTruth(f)
	if err != nil {
		return err
	}

	report := processor.Validate(result, gt, textRatio, codeRatio)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "lines: %d/%d (%.1f%%)\n", report.LinesMatched, report.LinesTotal, report.LineAccuracy*100)
	fmt.Fprintf(out, "codes: %d/%d (%.1f%%)\n", report.CodesCorrect, report.CodesTotal, report.CodeAccuracy*100)
	for _, m := range report.Mismatches {
		fmt.Fprintf(out, "  page %d: expected %q, got %q\n", m.Page, m.Expected, m.Got)
	}
	fmt.Fprintf(out, "overall: %.1f%%\n", report.Accuracy()*100)
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdf-extractor/internal/config"
	"github.com/adverant/nexus/pdf-extractor/internal/convert"
	"github.com/adverant/nexus/pdf-extractor/internal/logging"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert a TIFF into a PDF",
	Long: `Convert a single or multi-page TIFF into a PDF with one page per frame.

Examples:
  pdf-extractor convert scan.tif
  pdf-extractor convert scan.tiff -o out.pdf --optimize=false`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var infoCmd = &cobra.Command{
	Use:         "info [file]",
	Short:       "Print TIFF metadata as JSON",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"output": "stdout"},
	RunE:        runInfo,
}

var profilesCmd = &cobra.Command{
	Use:         "profiles",
	Short:       "Print the effective calibration profiles as YAML",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"output": "stdout"},
	RunE:        runProfiles,
}

func init() {
	rootCmd.AddCommand(convertCmd, infoCmd, profilesCmd)

	convertCmd.Flags().StringP("output", "o", "", "PDF path (default: <name>.pdf next to the input)")
	convertCmd.Flags().Bool("optimize", true, "optimize the PDF with pdfcpu")
}

func readTIFF(path string) ([]byte, error) {
	if !convert.IsTIFF(path, "") {
		return nil, fmt.Errorf("%s: only .tif and .tiff files are supported", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !convert.IsTIFFData(data) {
		return nil, fmt.Errorf("%s: not a TIFF file", path)
	}
	return data, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output, _ := cmd.Flags().GetString("output")
	optimize, _ := cmd.Flags().GetBool("optimize")

	data, err := readTIFF(input)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	pdf, err := convert.TIFFToPDF(ctx, data, optimize)
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(filepath.Dir(input), convert.PDFFilename(filepath.Base(input)))
	}
	if err := os.WriteFile(output, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	pages, _ := convert.PDFPageCount(pdf)
	logging.NewLogger("Convert").Info("PDF written", "output", output, "pages", pages, "bytes", len(pdf), "optimized", optimize)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	data, err := readTIFF(args[0])
	if err != nil {
		return err
	}

	info, err := convert.Inspect(filepath.Base(args[0]), data)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	set, err := config.LoadProfiles(cfg)
	if err != nil {
		return err
	}
	out, err := set.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/notecrop/internal/batch"
	"github.com/MeKo-Tech/notecrop/internal/pdf"
	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [file...]",
	Short: "Detect sticky notes in images embedded in PDF files",
	Long: `Extract the images embedded in PDF pages and run detection on each.

Works with scanned documents where every page is a photo. Vector content is
not rendered.

Examples:
  notecrop pdf scans.pdf
  notecrop pdf scans.pdf --pages 1-3,7 --format json
  notecrop pdf locked.pdf --password secret --output-dir crops`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runPDF,
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addDetectionFlags(pdfCmd)
	addOutputFlags(pdfCmd)

	pdfCmd.Flags().String("pages", "", "page range to process (e.g., '1-5', '1,3,5')")
	pdfCmd.Flags().StringP("password", "p", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}

func pdfOptions(cmd *cobra.Command) (pdf.ExtractOptions, error) {
	var opts pdf.ExtractOptions
	opts.Pages, _ = cmd.Flags().GetString("pages")
	opts.UserPassword, _ = cmd.Flags().GetString("password")
	opts.OwnerPassword, _ = cmd.Flags().GetString("owner-password")
	if err := pdf.ValidatePageRange(opts.Pages); err != nil {
		return opts, fmt.Errorf("invalid page range: %w", err)
	}
	return opts, nil
}

func runPDF(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no PDF files provided")
	}

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := pdfOptions(cmd)
	if err != nil {
		return err
	}
	pl, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	artifacts := cfg.ToBatchConfig()
	stems := batch.ArtifactStems(args)
	docs := make([]*pipeline.PDFResult, 0, len(args))
	for i, file := range args {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("cannot access %s: %w", file, err)
		}
		doc, err := pl.ProcessPDFContext(ctx, file, opts)
		if err != nil {
			if pdf.IsPasswordError(err) {
				return fmt.Errorf("%w (use --password)", err)
			}
			return fmt.Errorf("failed to process %s: %w", file, err)
		}
		for _, img := range doc.Images {
			img.Result.Source = fmt.Sprintf("%s#page=%d/%d", file, img.Page, img.ImageIndex)
			name := fmt.Sprintf("%s_p%d_%d", stems[i], img.Page, img.ImageIndex)
			if err := batch.WriteArtifacts(artifacts, name, img.Result); err != nil {
				return fmt.Errorf("%s page %d: %w", file, img.Page, err)
			}
		}
		docs = append(docs, doc)
	}

	rendered, err := formatPDFResults(docs, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, rendered, cfg.Output.File)
}

// formatPDFResults renders documents as JSON, or flattens their images into
// the per-image text and CSV formats.
func formatPDFResults(docs []*pipeline.PDFResult, format string) (string, error) {
	if strings.EqualFold(format, pipeline.FormatJSON) {
		var v any = docs
		if len(docs) == 1 {
			v = docs[0]
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var results []*pipeline.ImageResult
	for _, doc := range docs {
		for _, img := range doc.Images {
			results = append(results, img.Result)
		}
	}
	if len(results) == 0 && pipeline.IsSupportedFormat(strings.ToLower(format)) {
		return "no embedded images found", nil
	}
	return pipeline.FormatResults(results, format)
}

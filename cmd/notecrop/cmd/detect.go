package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/notecrop/internal/batch"
	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/MeKo-Tech/notecrop/internal/utils"
	"github.com/spf13/cobra"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:     "detect [image...]",
	Aliases: []string{"image"},
	Short:   "Detect and crop the sticky note in images",
	Long: `Detect the yellow sticky note in one or more image files.

Images are processed one after another; use "batch" for directories and
parallel processing. A missing note is reported in the output, not as an error.

Supported formats: JPEG, PNG, BMP

Examples:
  notecrop detect photo.jpg
  notecrop detect photo.jpg --output-dir crops --save-annotated
  notecrop detect *.png --format json --min-area 5000`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	addDetectionFlags(detectCmd)
	addOutputFlags(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no input files provided")
	}

	cfg, err := commandConfig(cmd)
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
	results := make([]*pipeline.ImageResult, 0, len(args))
	for i, path := range args {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		res, err := pl.ProcessImageContext(ctx, img)
		if err != nil {
			return fmt.Errorf("failed to process %s: %w", path, err)
		}
		res.Source = path
		if err := batch.WriteArtifacts(artifacts, stems[i], res); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		slog.Debug("Image done", "path", path, "found", res.Found, "score", res.Score)
		results = append(results, res)
	}

	rendered, err := pipeline.FormatResults(results, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, rendered, cfg.Output.File)
}

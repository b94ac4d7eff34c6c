package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/notecrop/internal/config"
	"github.com/MeKo-Tech/notecrop/internal/pipeline"
	"github.com/spf13/cobra"
)

// addDetectionFlags registers the detector tuning flags shared by detect,
// batch and pdf. Their values only apply when set explicitly.
func addDetectionFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Detection
	f := cmd.Flags()
	f.String("color-low", d.ColorLow.String(), "lower HSV bound as h,s,v (hue 0-179)")
	f.String("color-high", d.ColorHigh.String(), "upper HSV bound as h,s,v (hue 0-179)")
	f.Int("min-area", d.MinArea, "minimum contour area in pixels")
	f.Float64("max-aspect-deviation", d.MaxAspectDeviation, "maximum deviation from a square in percent (0-100)")
	f.Int("upscale", d.Upscale, "integer upscale factor for the cropped region (1-4)")
	f.Bool("debug", d.Debug, "produce mask and annotated debug images")
}

// addOutputFlags registers result and artifact output flags.
func addOutputFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Output
	f := cmd.Flags()
	f.StringP("format", "f", d.Format, "output format (text, json, csv)")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.String("output-dir", "", "directory for cropped regions and debug images")
	f.Bool("save-mask", false, "save the binary mask next to the crop (requires --output-dir)")
	f.Bool("save-annotated", false, "save the annotated image next to the crop (requires --output-dir)")
	f.Int("jpeg-quality", d.JPEGQuality, "JPEG quality for saved crops (1-100)")
}

func overrideString(cmd *cobra.Command, name string, target *string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetString(name)
	}
}

func overrideInt(cmd *cobra.Command, name string, target *int) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetInt(name)
	}
}

func overrideInt64(cmd *cobra.Command, name string, target *int64) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetInt64(name)
	}
}

func overrideFloat64(cmd *cobra.Command, name string, target *float64) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetFloat64(name)
	}
}

func overrideBool(cmd *cobra.Command, name string, target *bool) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetBool(name)
	}
}

func overrideStringSlice(cmd *cobra.Command, name string, target *[]string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetStringSlice(name)
	}
}

func overrideHSV(cmd *cobra.Command, name string, target *config.HSVConfig) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	s, _ := cmd.Flags().GetString(name)
	h, err := config.ParseHSV(s)
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", name, err)
	}
	*target = h
	return nil
}

// commandConfig merges the flags of cmd over the loaded configuration and
// validates the result.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := GetConfig()

	if cmd.Flags().Lookup("color-low") != nil {
		if err := overrideHSV(cmd, "color-low", &cfg.Detection.ColorLow); err != nil {
			return nil, err
		}
		if err := overrideHSV(cmd, "color-high", &cfg.Detection.ColorHigh); err != nil {
			return nil, err
		}
		overrideInt(cmd, "min-area", &cfg.Detection.MinArea)
		overrideFloat64(cmd, "max-aspect-deviation", &cfg.Detection.MaxAspectDeviation)
		overrideInt(cmd, "upscale", &cfg.Detection.Upscale)
		overrideBool(cmd, "debug", &cfg.Detection.Debug)
	}

	if cmd.Flags().Lookup("format") != nil {
		overrideString(cmd, "format", &cfg.Output.Format)
		overrideString(cmd, "output", &cfg.Output.File)
		overrideString(cmd, "output-dir", &cfg.Output.Directory)
		overrideBool(cmd, "save-mask", &cfg.Output.SaveMask)
		overrideBool(cmd, "save-annotated", &cfg.Output.SaveAnnotated)
		overrideInt(cmd, "jpeg-quality", &cfg.Output.JPEGQuality)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if (cfg.Output.SaveMask || cfg.Output.SaveAnnotated) && cfg.Output.Directory == "" {
		return nil, errors.New("--save-mask and --save-annotated require --output-dir")
	}
	return cfg, nil
}

// buildPipeline creates the detection pipeline for cfg. Debug images are
// produced whenever they are going to be saved.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	debug := cfg.Detection.Debug || cfg.Output.SaveMask || cfg.Output.SaveAnnotated
	pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).WithDebug(debug).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return pl, nil
}

// writeOutput prints rendered results to stdout or writes them to file.
func writeOutput(cmd *cobra.Command, rendered, file string) error {
	if file == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	}
	if err := os.WriteFile(file, []byte(rendered+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, err := fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", file)
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

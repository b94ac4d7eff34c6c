package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/batch"
	"github.com/MeKo-Tech/notecrop/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Detect sticky notes in many images in parallel",
	Long: `Process files, directories and glob patterns with a pool of workers.

Failures of single images are reported in the summary and do not stop the
batch. The command exits non-zero when any image failed.

Examples:
  notecrop batch ./photos
  notecrop batch ./photos --recursive --include "*.jpg" --output-dir crops
  notecrop batch "scans/*.png" --workers 8 --format csv --output results.csv`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addDetectionFlags(batchCmd)
	addOutputFlags(batchCmd)

	d := config.DefaultConfig().Batch
	batchCmd.Flags().IntP("workers", "w", d.Workers, "number of parallel workers")
	batchCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "file patterns to include (e.g. *.jpg,*.png)")
	batchCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	batchCmd.Flags().Bool("progress", true, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
	batchCmd.Flags().Bool("stats", true, "print a summary after processing")
	batchCmd.Flags().Duration("progress-interval", 100*time.Millisecond, "progress bar refresh interval")
}

// configToBatchConfig builds the batch configuration from the central
// configuration and the batch-only flags.
func configToBatchConfig(cmd *cobra.Command, cfg *config.Config) *batch.Config {
	overrideInt(cmd, "workers", &cfg.Batch.Workers)
	overrideBool(cmd, "recursive", &cfg.Batch.Recursive)
	overrideStringSlice(cmd, "include", &cfg.Batch.Include)
	overrideStringSlice(cmd, "exclude", &cfg.Batch.Exclude)

	bc := cfg.ToBatchConfig()
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	bc.ProgressWriter = cmd.ErrOrStderr()
	return bc
}

func runBatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no input files or directories provided")
	}

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	bc := configToBatchConfig(cmd, cfg)
	if bc.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d (must be positive)", bc.Workers)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := batch.ProcessBatch(ctx, args, bc)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("batch interrupted")
		}
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile); err != nil {
		return err
	}
	showStats, _ := cmd.Flags().GetBool("stats")
	if showStats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}

	if s := result.Summary(); s.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", s.Failed, s.Total)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativeflow/creative-int/internal/ingest"
	"github.com/creativeflow/creative-int/internal/inventory"
	"github.com/creativeflow/creative-int/internal/naming"
	"github.com/creativeflow/creative-int/internal/progress"
	"github.com/creativeflow/creative-int/internal/transform"
)

func newProcessCmd() *cobra.Command {
	var (
		dryRun bool
		force  bool
		native bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Ingest media files from source_files/ into the inventory",
		Long: `Scan source_files/ for new media, resolve metadata, normalize
filenames, and move the files into uploaded/ by kind. Videos placed under
source_files/native/ (or all videos with --native) additionally get a
640x360 native variant and thumbnail.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, paths, err := loadWorkspace()
			if err != nil {
				return err
			}

			ledger := inventory.NewLedger(paths)
			ids, err := inventory.LoadIDStore(paths.ProcessedIDs)
			if err != nil {
				return err
			}
			defaults, err := naming.LoadDefaults(paths.DefaultsFile)
			if err != nil {
				return err
			}

			converter := transform.NewConverter(logger)
			if !converter.Available() {
				logger.Warn().Msg("ffmpeg/ffprobe not found on PATH; video files will fail to process")
			}

			var reporter progress.Reporter
			if !verbose {
				reporter = progress.NewCLIProgress()
			}

			processor := ingest.NewProcessor(paths, ledger, ids, defaults, converter,
				newStdinPrompter(), logger, reporter, ingest.Options{
					DryRun:         dryRun,
					ForceReprocess: force,
					ForceNative:    native,
				})

			summary, err := processor.Run(rootContext)
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d file(s) failed to process", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would happen without moving files")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess files already recorded in the inventory")
	cmd.Flags().BoolVar(&native, "native", false, "Derive native variants for every video")

	return cmd
}

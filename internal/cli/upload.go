package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativeflow/creative-int/internal/httpclient"
	"github.com/creativeflow/creative-int/internal/inventory"
	"github.com/creativeflow/creative-int/internal/platform/trafficjunky"
	"github.com/creativeflow/creative-int/internal/progress"
	"github.com/creativeflow/creative-int/internal/upload"
)

func newUploadCmd() *cobra.Command {
	var (
		live         bool
		force        bool
		limit        int
		batchSize    int
		platformName string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Submit pending creatives to the platform's media library",
		Long: `Upload the files recorded by the last process run. Runs are a
simulation by default: the tool logs in, navigates the media library, and
opens the upload form, but attaches nothing. Pass --live to submit files
for real.

After each live batch the media library is re-listed and the new creative
IDs are matched back to the submitted files and recorded in the inventory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch platformName {
			case "tj", "trafficjunky":
			default:
				return fmt.Errorf("unknown platform %q (supported: tj)", platformName)
			}

			cfg, paths, err := loadWorkspace()
			if err != nil {
				return err
			}
			cfg.DryRun = !live
			if force {
				cfg.Force = true
			}
			if cmd.Flags().Changed("limit") {
				cfg.Limit = limit
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.MaxBatchSize = batchSize
			}

			if cfg.Username == "" {
				return fmt.Errorf("no platform credentials: set TJ_USERNAME and TJ_PASSWORD in config/.env")
			}
			if cfg.Password == "" {
				password, err := promptPassword(fmt.Sprintf("Password for %s: ", cfg.Username))
				if err != nil {
					return err
				}
				cfg.Password = password
			}
			if httpclient.NeedsProxyPassword(cfg) {
				password, err := promptPassword(fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
				if err != nil {
					return err
				}
				cfg.ProxyPassword = password
			}

			if cfg.DryRun {
				logger.Info().Msg("Dry run: no files will be attached (use --live to upload)")
			}

			client, err := trafficjunky.NewClient(cfg, paths, logger)
			if err != nil {
				return err
			}
			if err := client.EnsureAuthenticated(rootContext, cfg.Username, cfg.Password); err != nil {
				return fmt.Errorf("platform login failed: %w", err)
			}

			cache, err := inventory.LoadDuplicateCache(paths.DuplicateCache)
			if err != nil {
				return err
			}

			var reporter progress.Reporter
			if !verbose {
				reporter = progress.NewCLIProgress()
			}

			workflow := trafficjunky.NewWorkflow(client, logger)
			session := upload.NewSession(cfg, paths, workflow, inventory.NewLedger(paths), cache, logger, reporter)

			summary, err := session.Run(rootContext)
			if err != nil {
				return err
			}
			// Per-file failures are recorded in the run status ledger; a
			// completed run still exits zero.
			if summary.Failed > 0 {
				logger.Warnf("%d file(s) failed to upload; see the run status ledger", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Attach and submit files for real (default is a dry run)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-upload files that already have a recorded creative ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Cap the number of files per kind (0 = no limit)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Files per submitted batch")
	cmd.Flags().StringVar(&platformName, "platform", "tj", "Target ad platform")

	return cmd
}

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"image-pipeline/internal/di"
	"image-pipeline/internal/output"
)

func newCleanupCommand(cc *cliContext) *cobra.Command {
	var (
		maxAge     time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired manifests from the cache",
		Long: `Delete cached manifests older than --max-age (default: cache.max_age).
Variant files are never deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				maxAge = cc.cfg.Cache.MaxAge
			}

			ctx := cmd.Context()
			components, err := di.NewApplicationComponents(ctx, cc.cfg, cc.logger)
			if err != nil {
				return &output.CLIError{
					Summary:  "cannot initialize pipeline",
					Detail:   err.Error(),
					ExitCode: output.ExitConfigError,
				}
			}
			defer components.Close()

			report, err := components.Processor.CleanupCache(ctx, maxAge)
			if err != nil {
				return &output.CLIError{
					Summary:  "cache cleanup failed",
					Detail:   err.Error(),
					ExitCode: output.ExitGeneral,
				}
			}

			p := cc.printer(cmd)
			if jsonOutput {
				return p.JSON(map[string]any{
					"maxAge":    maxAge.String(),
					"scanned":   report.Scanned,
					"deleted":   report.Deleted,
					"failed":    report.Failed,
					"elapsedMs": report.Elapsed.Milliseconds(),
				})
			}

			p.Success("deleted %d of %d manifests older than %s", report.Deleted, report.Scanned, maxAge)
			if report.Failed > 0 {
				p.Warning("%d manifests could not be deleted", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "delete manifests older than this (default: cache.max_age)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")
	return cmd
}

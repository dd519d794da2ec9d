// Package cli contains all commands of the image-pipeline binary
package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"image-pipeline/config"
	"image-pipeline/internal/output"
	"image-pipeline/utils/logger"
)

// BuildInfo is stamped at build time via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// cliContext carries global flag values and loaded state between commands.
type cliContext struct {
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *slog.Logger
	build  BuildInfo
}

// NewRootCommand builds the command tree.
func NewRootCommand(build BuildInfo) *cobra.Command {
	if build.Version == "" {
		build.Version = "dev"
	}
	cc := &cliContext{build: build}

	root := &cobra.Command{
		Use:   "image-pipeline",
		Short: "Responsive image processing service",
		Long: `image-pipeline turns uploaded images into content-addressed responsive
variants with a blur placeholder and srcset strings.

Example usage:
  image-pipeline serve                       # Run the HTTP upload service
  image-pipeline process photo.jpg           # Process one file and print its variants
  image-pipeline process photo.jpg --json    # Print the manifest as JSON
  image-pipeline cleanup --max-age 168h      # Delete manifests older than a week`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return cc.initConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cc.cfgFile, "config", "", "config file (default is ./image-pipeline.yaml)")
	root.PersistentFlags().BoolVarP(&cc.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&cc.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCommand(cc),
		newProcessCommand(cc),
		newCleanupCommand(cc),
		newHealthcheckCommand(cc),
		newVersionCommand(cc),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(build BuildInfo) int {
	root := NewRootCommand(build)
	err := root.Execute()
	if err == nil {
		return output.ExitSuccess
	}

	printer := output.NewPrinter(output.PrinterOptions{})
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		printer.FormatError(cliErr)
		return cliErr.ExitCode
	}
	printer.Error("%v", err)
	return output.ExitGeneral
}

// initConfig loads configuration and sets up a stderr logger.
func (cc *cliContext) initConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(cc.cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Check image-pipeline.yaml or the IMAGE_PIPELINE_* environment variables",
			ExitCode:   output.ExitConfigError,
		}
	}
	cc.cfg = cfg

	level := logger.ParseLevel(cfg.Logging.Level)
	if cc.verbose {
		level = slog.LevelDebug
	}
	cc.logger = slog.New(logger.NewHandler(cmd.ErrOrStderr(), level, false))

	cc.logger.Debug("configuration loaded",
		"cache_backend", cfg.Cache.Backend,
		"upload_dir", cfg.Images.UploadDir,
		"processed_dir", cfg.Images.ProcessedDir,
		"formats", cfg.Images.Formats,
		"sizes", cfg.Images.Sizes)
	return nil
}

func (cc *cliContext) printer(cmd *cobra.Command) *output.Printer {
	mode := output.ColorAuto
	if cc.noColor {
		mode = output.ColorNever
	}
	return output.NewPrinter(output.PrinterOptions{
		ColorMode: mode,
		Out:       cmd.OutOrStdout(),
		Err:       cmd.ErrOrStderr(),
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

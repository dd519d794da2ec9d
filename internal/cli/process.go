package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"image-pipeline/internal/di"
	"image-pipeline/internal/domain"
	"image-pipeline/internal/output"
)

func newProcessCommand(cc *cliContext) *cobra.Command {
	var (
		rawOptions []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process one image and print its manifest",
		Long: `Run a single image through the pipeline using the configured formats,
sizes and directories. Variants that already exist on disk are reused.`,
		Example: `  image-pipeline process photo.jpg
  image-pipeline process photo.jpg --option crop=square --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseOptions(rawOptions)
			if err != nil {
				return &output.CLIError{
					Summary:    "invalid --option value",
					Detail:     err.Error(),
					Suggestion: "Use --option key=value",
					ExitCode:   output.ExitUsageError,
				}
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

			result, err := components.Processor.ProcessImage(ctx, args[0], opts)
			if err != nil {
				return &output.CLIError{
					Summary:    "cannot process " + args[0],
					Detail:     err.Error(),
					Suggestion: "Check that the file exists and is a JPEG, PNG, WebP, GIF, BMP or TIFF image",
					ExitCode:   output.ExitProcessingError,
				}
			}

			p := cc.printer(cmd)
			if jsonOutput {
				return p.JSON(result)
			}
			return printResult(p, result)
		},
	}

	cmd.Flags().StringArrayVar(&rawOptions, "option", nil, "processing option as key=value (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the manifest as JSON")
	return cmd
}

func printResult(p *output.Printer, result *domain.ProcessingResult) error {
	status := "processed"
	if result.Cached {
		status = "cached"
	}
	p.Success("%s %dx%d %s (%d bytes) in %dms",
		status,
		result.Original.Width,
		result.Original.Height,
		result.Original.Format,
		result.Original.ByteSize,
		result.ProcessingTimeMs)
	p.Print("content hash: %s", result.ContentHash)
	if result.BlurPlaceholder != nil {
		p.Print("blurhash:     %s", *result.BlurPlaceholder)
	} else {
		p.Warning("no blur placeholder")
	}

	p.Header("Variants")
	table := output.NewTable(p.Out(), []string{"Format", "Suffix", "Width", "Height", "Bytes", "URL"})
	for _, v := range result.Variants {
		table.AddRow(
			string(v.Format),
			v.Suffix,
			strconv.Itoa(v.Width),
			strconv.Itoa(v.Height),
			strconv.FormatInt(v.ByteSize, 10),
			v.URL,
		)
	}
	if table.Len() == 0 {
		p.Warning("no variants were produced")
		return nil
	}
	return table.Render()
}

// parseOptions turns key=value pairs into Options. Values that parse as
// JSON keep their type; anything else is a string.
func parseOptions(raw []string) (domain.Options, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	opts := make(domain.Options, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key=value", kv)
		}

		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err == nil {
			opts[key] = typed
		} else {
			opts[key] = value
		}
	}
	return opts, nil
}

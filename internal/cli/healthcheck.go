package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newHealthcheckCommand(cc *cliContext) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local server's /health endpoint",
		Long:  `Exit non-zero unless the running server answers /health with 200. Used as the container healthcheck in distroless images.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				port := getEnv("PORT", cc.cfg.Server.Port)
				url = fmt.Sprintf("http://127.0.0.1:%s/health", port)
			}
			return runHealthcheck(cmd, url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "health endpoint to probe (default: local server port)")
	return cmd
}

// runHealthcheck performs a health check against the local server
func runHealthcheck(cmd *cobra.Command, url string) error {
	client := &http.Client{
		Timeout: 2 * time.Second,
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the health endpoint of a running coastwatchd instance",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "http://localhost:8080", "address of the running daemon")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(statusServer + "/api/v1/health")
	if err != nil {
		return fmt.Errorf("querying %s: %w", statusServer, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}

	// Re-indent for readable terminal output.
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

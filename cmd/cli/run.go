package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [ingestion|scoring|spikes]",
	Short: "Force one run of a pipeline stage",
	Long: `Triggers one immediate run of the named stage through the operator API.
The run is idempotent over unchanged upstream data and respects the stage
run lock: a 409 means a cycle of the same stage is already executing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 10 * time.Minute}
		url := fmt.Sprintf("%s/api/v1/runs/%s", serverAddr, args[0])

		resp, err := client.Post(url, "application/json", nil)
		if err != nil {
			return fmt.Errorf("triggering run: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

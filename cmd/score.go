package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/scanportal/internal/models"
	"github.com/BetterCallFirewall/scanportal/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Print risk metrics for a scan report or history JSON file",
	Long: `score reads a single scan report (as returned by /api/results) or a scan
history array (as returned by /api/history) and prints its risk metrics.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		out, err := scoreReports(data)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// scoreReports returns dashboard metrics for a history array and latest-scan
// metrics for a single report.
func scoreReports(data []byte) (interface{}, error) {
	reports, list, err := models.DecodeReports(data)
	if err != nil {
		return nil, err
	}
	if list {
		return scoring.Dashboard(reports), nil
	}
	return scoring.LatestScanMetrics(&reports[0]), nil
}

package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// CleanupRequest represents the cleanup API request.
type CleanupRequest struct {
	MaxAgeDays int `json:"max_age_days"`
}

// CleanupResponse represents the cleanup API response.
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// CleanupCmd creates the cleanup command.
func CleanupCmd() *cobra.Command {
	var maxAgeDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than a maximum age",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runCleanup(cmd, maxAgeDays, outputJSON)
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Delete records older than this many days")
	cmd.MarkFlagRequired("max-age-days")

	return cmd
}

func runCleanup(cmd *cobra.Command, maxAgeDays int, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/cleanup", CleanupRequest{MaxAgeDays: maxAgeDays})
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	var result CleanupResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Deleted %d records older than %d days\n", result.Deleted, maxAgeDays)
	}

	return nil
}

package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Record represents a knowledge record from the API.
type Record struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Source    string `json:"source,omitempty"`
	Date      string `json:"date,omitempty"`
	Category  string `json:"category,omitempty"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <record_id>",
		Short:   "Get a knowledge record by ID",
		Long:    "Retrieves a knowledge record by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(cmd *cobra.Command, recordID string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/knowledge/%s", recordID))
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		return fmt.Errorf("failed to parse record: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(output))
	} else {
		if record.Title != "" {
			fmt.Printf("Title: %s\n", record.Title)
		}
		if record.Source != "" {
			fmt.Printf("Source: %s\n", record.Source)
		}
		if record.Date != "" {
			fmt.Printf("Date: %s\n", record.Date)
		}
		if record.Category != "" {
			fmt.Printf("Category: %s\n", record.Category)
		}
		fmt.Printf("Created: %s\n", record.CreatedAt)
		fmt.Println()
		fmt.Println(record.Content)
	}

	return nil
}

package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Category  string   `json:"category,omitempty"`
}

// SearchResult represents a scored search result.
type SearchResult struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Formatted string         `json:"formatted"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		limit     int
		threshold float64
		category  string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search knowledge",
		Long:  "Searches the store by embedding similarity and prints the formatted context block.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			var thresholdPtr *float64
			if cmd.Flags().Changed("threshold") {
				thresholdPtr = &threshold
			}
			return runSearch(cmd, args[0], limit, thresholdPtr, category, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default if unset)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity score, 0 to 1")
	cmd.Flags().StringVar(&category, "category", "", "Only search records with this category")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, threshold *float64, category string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:     query,
		Limit:     limit,
		Threshold: threshold,
		Category:  category,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(searchResp.Formatted)
	if len(searchResp.Results) > 0 {
		fmt.Println()
		for i, result := range searchResp.Results {
			fmt.Printf("%d. %s (score %.2f)\n", i+1, result.Record.ID, result.Score)
		}
	}

	return nil
}

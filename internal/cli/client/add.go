package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AddRequest represents the create knowledge API request.
type AddRequest struct {
	Content  string `json:"content"`
	Source   string `json:"source,omitempty"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
	Title    string `json:"title,omitempty"`
}

// AddResponse represents the create knowledge API response.
type AddResponse struct {
	IDs        []string `json:"ids"`
	Chunks     int      `json:"chunks"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		file     string
		source   string
		date     string
		category string
		title    string
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add knowledge from an argument, file, or stdin",
		Long: `Add knowledge to the store. Long content is chunked and embedded server-side.

Examples:
  # Add inline content
  recall add "Go interfaces are satisfied implicitly." --source "Effective Go"

  # Add from a file
  recall add --file notes.md --source "meeting notes" --date 2026-08-25

  # Add from stdin
  cat notes.md | recall add --category engineering`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			content := ""
			if len(args) == 1 {
				content = args[0]
			}
			return runAdd(cmd, content, file, source, date, category, title, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from a file instead of the argument")
	cmd.Flags().StringVar(&source, "source", "", "Where the content came from")
	cmd.Flags().StringVar(&date, "date", "", "Date associated with the content (e.g. 2026-08-25)")
	cmd.Flags().StringVar(&category, "category", "", "Category label for filtering")
	cmd.Flags().StringVar(&title, "title", "", "Title for the content")

	return cmd
}

func runAdd(cmd *cobra.Command, content, file, source, date, category, title string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if content == "" {
		var input []byte
		if file != "" {
			input, err = os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
		} else {
			input, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
		}
		content = string(input)
	}

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no content provided")
	}

	req := AddRequest{
		Content:  content,
		Source:   source,
		Date:     date,
		Category: category,
		Title:    title,
	}

	resp, err := api.Post("/knowledge", req)
	if err != nil {
		return fmt.Errorf("failed to add knowledge: %w", err)
	}

	var result AddResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.IDs) == 0 {
		if result.Duplicates > 0 {
			fmt.Printf("Nothing stored: %d duplicate chunks skipped\n", result.Duplicates)
			return nil
		}
		fmt.Println("Nothing stored.")
		return nil
	}

	fmt.Printf("Stored %d of %d chunks:\n", len(result.IDs), result.Chunks)
	for _, id := range result.IDs {
		fmt.Printf("  %s\n", id)
	}
	if result.Duplicates > 0 {
		fmt.Printf("Skipped %d duplicates\n", result.Duplicates)
	}
	if result.Failed > 0 {
		fmt.Printf("Failed to embed %d chunks\n", result.Failed)
	}

	return nil
}

package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the recall client",
		Long:  "Verifies the server is reachable and saves its URL and token to the global config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			serverURL, _ := cmd.Flags().GetString("server-url")
			apiToken, _ := cmd.Flags().GetString("api-token")
			return runInit(serverURL, apiToken, force, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")

	return cmd
}

// ResetCmd creates the reset command, the inverse of init.
func ResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the saved client configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset()
		},
	}
}

func runReset() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to remove config: %w", err)
	}

	fmt.Printf("Removed %s\n", configPath)
	return nil
}

func runInit(serverURL, apiToken string, force, outputJSON bool) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
	}

	_ = godotenv.Load()
	if serverURL == "" {
		serverURL = os.Getenv(envServerURL)
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	if apiToken == "" {
		apiToken = os.Getenv(envAPIToken)
	}

	api, err := NewAPIClientWithConfig(apiToken, serverURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	if err := api.Health(); err != nil {
		return err
	}

	if err := SaveGlobalConfig(&GlobalConfig{ServerURL: serverURL, APIToken: apiToken}); err != nil {
		return err
	}

	if outputJSON {
		result := map[string]interface{}{
			"server_url": serverURL,
			"config":     configPath,
			"status":     "ok",
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Connected to %s\n", serverURL)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}

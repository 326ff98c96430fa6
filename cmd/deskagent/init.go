package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okdesk/deskagent/internal/config"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively generate a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")

			if !force {
				if _, err := os.Stat(out); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", out)
				}
			}

			cfg, err := runInitForm()
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			fmt.Printf("Wrote %s\n", out)
			fmt.Println("Start the backend with: deskagent start -c " + out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "deskagent.yaml", "Output path")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

// runInitForm collects the settings a fresh install actually needs;
// everything else keeps its default.
func runInitForm() (*config.Config, error) {
	cfg := &config.Config{}
	cfg.Defaults()

	tracingEnabled := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LLM API base URL").
				Description("OpenAI-compatible endpoint").
				Value(&cfg.Provider.BaseURL),
			huh.NewInput().
				Title("API key").
				Description("Leave empty to run on deterministic fallbacks only").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Provider.APIKey),
			huh.NewSelect[string]().
				Title("Model").
				Options(huh.NewOptions("qwen-turbo", "qwen-plus", "qwen-max")...).
				Value(&cfg.Provider.Model),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&cfg.Gateway.Listen),
			huh.NewInput().
				Title("Data directory").
				Description("Conversation memory is stored here (sqlite)").
				Value(&cfg.Memory.DataDir),
			huh.NewConfirm().
				Title("Export traces via OTLP?").
				Value(&tracingEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}

	cfg.Tracing.Enabled = tracingEnabled
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

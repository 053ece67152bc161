package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Task Genie configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/taskgenie/config.yaml
Project-specific overrides can be placed in .taskgenie.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			return setConfigKey(args[0], args[1])
		}
		v, err := config.LoadViper()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if len(args) == 0 {
			for _, key := range config.Keys() {
				fmt.Printf("%s: %s\n", key, config.DisplayValue(key, v.Get(key)))
			}
			fmt.Printf("\n%s %s\n", color.HiBlackString("api key source:"), apiKeySource())
			fmt.Printf("\n%s %s\n", color.HiBlackString("user config:"), config.GetUserConfigPath())
			if p := config.GetProjectConfigPath(); p != "" {
				fmt.Printf("%s %s\n", color.HiBlackString("project config:"), p)
			}
			return nil
		}
		if !config.IsKnownKey(args[0]) {
			return fmt.Errorf("unknown config key %q", args[0])
		}
		fmt.Println(config.DisplayValue(args[0], v.Get(args[0])))
		if args[0] == "anthropic.api_key" {
			fmt.Printf("%s %s\n", color.HiBlackString("source:"), apiKeySource())
		}
		return nil
	},
}

// apiKeySource reports where the effective API key comes from.
func apiKeySource() config.KeySource {
	return config.GetAPIKeySource(appConfig)
}

func setConfigKey(key, value string) error {
	if err := config.Set(key, value); err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Set %s = %s", key, config.DisplayValue(key, value)), color.FgGreen)
	return nil
}

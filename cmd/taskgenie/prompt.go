package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/prompt"
	"github.com/ShayCichocki/taskgenie/internal/state"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// promptContext selects a work item context by its parts.
var promptContext struct {
	workItemType string
	areaPath     string
	businessUnit string
	system       string
}

var promptFile string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage stored generation prompts",
	Long: `Stored prompts replace the built-in generation prompt for one work item
context, identified by type, area path, business unit and system. A prompt
passed with "generate --prompt" or in a request still takes precedence.`,
}

var promptGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the generation prompt used for a context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := contextItem()
		if err != nil {
			return err
		}
		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		text, source := prompt.NewResolver(state.NewPromptStore(db), nil).Resolve(cmd.Context(), item, "")
		fmt.Fprintf(os.Stderr, "%s %s\n", color.HiBlackString("source:"), source)
		fmt.Println(text)
		return nil
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set [prompt]",
	Short: "Store the generation prompt for a context",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := contextItem()
		if err != nil {
			return err
		}
		var text string
		switch {
		case len(args) == 1 && promptFile != "":
			return errors.New("give the prompt as an argument or with --file, not both")
		case len(args) == 1:
			text = args[0]
		case promptFile != "":
			data, err := readInput(promptFile)
			if err != nil {
				return err
			}
			text = string(data)
		default:
			return errors.New("a prompt is required")
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("prompt is empty")
		}

		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := state.NewPromptStore(db).SetPrompt(cmd.Context(), item.ConfigKey(), text); err != nil {
			return err
		}
		printStatus("✓", "Stored prompt for "+item.ConfigKey(), color.FgGreen)
		return nil
	},
}

var promptDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored prompt for a context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := contextItem()
		if err != nil {
			return err
		}
		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := state.NewPromptStore(db).DeletePrompt(cmd.Context(), item.ConfigKey()); err != nil {
			return err
		}
		printStatus("✓", "Deleted prompt for "+item.ConfigKey(), color.FgGreen)
		return nil
	},
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		overrides, err := state.NewPromptStore(db).ListPrompts(cmd.Context())
		if err != nil {
			return err
		}
		if len(overrides) == 0 {
			fmt.Println("No stored prompts")
			return nil
		}
		for _, o := range overrides {
			fmt.Printf("%s  %s\n", color.New(color.Bold).Sprint(o.Key), color.HiBlackString(o.UpdatedAt.Format(time.RFC3339)))
			fmt.Printf("    %s\n", prompt.DraftPreview(o.Prompt))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{promptGetCmd, promptSetCmd, promptDeleteCmd} {
		c.Flags().StringVar(&promptContext.workItemType, "type", "", "Work item type (required)")
		c.Flags().StringVar(&promptContext.areaPath, "area", "", "Area path")
		c.Flags().StringVar(&promptContext.businessUnit, "business-unit", "", "Business unit")
		c.Flags().StringVar(&promptContext.system, "system", "", "System")
	}
	promptSetCmd.Flags().StringVarP(&promptFile, "file", "f", "", "Read the prompt from a file (- for stdin)")

	promptCmd.AddCommand(promptGetCmd, promptSetCmd, promptDeleteCmd, promptListCmd)
}

// contextItem builds a work item carrying only the context fields of the
// flags.
func contextItem() (models.WorkItem, error) {
	t := models.WorkItemType(promptContext.workItemType)
	if !t.Valid() {
		return models.WorkItem{}, fmt.Errorf("--type must be a known work item type, got %q", promptContext.workItemType)
	}
	item := models.NewWorkItem(t)
	item.AreaPath = promptContext.areaPath
	item.BusinessUnit = promptContext.businessUnit
	item.System = promptContext.system
	return item, nil
}

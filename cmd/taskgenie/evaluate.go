package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/config"
	"github.com/ShayCichocki/taskgenie/internal/prompt"
)

var (
	evaluateItem workItemFlags
	evaluateJSON bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Check a work item against the readiness rubric",
	Long: `Evaluate asks the model whether a work item is defined well enough to be
broken down. Nothing is written to Azure DevOps.

Examples:
  taskgenie evaluate --project Payments --id 4211
  taskgenie evaluate -f story.json --json`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateItem.register(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "Print the result as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if err := evaluateItem.validate(); err != nil {
		return err
	}
	a, err := newApp(appConfig, config.NeedModel|evaluateItem.requirement())
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.logUsage()

	ctx := cmd.Context()
	item, err := evaluateItem.load(ctx, a.tracker)
	if err != nil {
		return err
	}
	eng, err := a.engine()
	if err != nil {
		return err
	}
	eval, err := eng.Evaluate(ctx, item)
	if err != nil {
		return err
	}

	if evaluateJSON {
		return printJSON(os.Stdout, eval)
	}
	label := fmt.Sprintf("%s #%d %q", item.Type, item.ID, item.Title)
	if eval.Pass {
		printStatus("✓", label+" is ready to be broken down", color.FgGreen)
	} else {
		printStatus("✗", label+" needs more detail", color.FgRed)
		fmt.Printf("\n%s\n", prompt.StripMarkup(eval.Comment))
	}
	if len(eval.Sources) > 0 {
		fmt.Printf("\n%s\n", color.New(color.Bold).Sprint("Sources:"))
		for _, s := range eval.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/config"
	"github.com/ShayCichocki/taskgenie/internal/decompose"
	"github.com/ShayCichocki/taskgenie/internal/tui"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

var (
	generateItem         workItemFlags
	generatePrompt       string
	generateTemperature  float64
	generateTopP         float64
	generateMaxTokens    int
	generateInstructions string
	generateDrafts       string
	generateInteractive  bool
	generateCreate       bool
	generateJSON         bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft child work items for a work item",
	Long: `Generate drafts the children of a work item without evaluating it first.

With --drafts and --instructions an existing set of drafts is refined
instead. --interactive opens a screen where drafts can be refined repeatedly
before they are accepted. --create writes the accepted drafts to Azure DevOps
and links them to the parent.

Examples:
  taskgenie generate --project Payments --id 4211
  taskgenie generate -f feature.json --drafts drafts.json --instructions "split the API work"
  taskgenie generate --project Payments --id 4211 --interactive --create`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateItem.register(generateCmd)
	generateCmd.Flags().StringVar(&generatePrompt, "prompt", "", "Base generation prompt, overriding stored and default prompts")
	generateCmd.Flags().Float64Var(&generateTemperature, "temperature", 0, "Sampling temperature (default from inference.temperature)")
	generateCmd.Flags().Float64Var(&generateTopP, "top-p", 0, "Nucleus sampling, used when --temperature is not set")
	generateCmd.Flags().IntVar(&generateMaxTokens, "max-tokens", 0, "Output token ceiling (default from inference.max_tokens)")
	generateCmd.Flags().StringVar(&generateInstructions, "instructions", "", "Refinement instructions for --drafts")
	generateCmd.Flags().StringVar(&generateDrafts, "drafts", "", "JSON file of drafts to refine")
	generateCmd.Flags().BoolVarP(&generateInteractive, "interactive", "i", false, "Refine drafts interactively before accepting")
	generateCmd.Flags().BoolVar(&generateCreate, "create", false, "Create the drafts in Azure DevOps")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the result as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := generateItem.validate(); err != nil {
		return err
	}
	if (generateDrafts == "") != (generateInstructions == "") {
		return errors.New("--drafts and --instructions must be used together")
	}
	req := config.NeedModel | generateItem.requirement()
	if generateCreate {
		req |= config.NeedTracker
	}
	a, err := newApp(appConfig, req)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.logUsage()

	ctx := cmd.Context()
	item, err := generateItem.load(ctx, a.tracker)
	if err != nil {
		return err
	}
	if _, ok := models.ExpectedChildWorkItemType(item); !ok {
		return fmt.Errorf("%s work items cannot be broken down", item.Type)
	}
	eng, err := a.engine()
	if err != nil {
		return err
	}

	var existing []models.WorkItem
	if a.tracker != nil && item.ID > 0 {
		if existing, err = a.tracker.FetchChildren(ctx, item); err != nil {
			return err
		}
	}

	params := samplingParams(cmd, a.cfg)
	if generateDrafts != "" {
		drafts, err := readDrafts(generateDrafts)
		if err != nil {
			return err
		}
		params.RefinementInstructions = generateInstructions
		params.GeneratedWorkItems = drafts
	}

	result, err := eng.Generate(ctx, item, existing, params)
	if err != nil {
		return err
	}
	drafts := result.WorkItems

	if generateInteractive {
		refiner := draftRefiner(eng, item, existing, params)
		accepted, ok, err := tui.RunRefine(tui.NewRefineModel(ctx, item, drafts, refiner))
		if err != nil {
			return err
		}
		if !ok {
			printStatus("⚠", "Drafts discarded", color.FgYellow)
			return nil
		}
		drafts = accepted
	}

	if !generateCreate {
		if generateJSON {
			return printJSON(os.Stdout, models.GenerationResult{WorkItems: drafts, Documents: result.Documents})
		}
		printDrafts(drafts)
		return nil
	}

	created, err := a.tracker.CreateChildren(ctx, item, drafts)
	for _, c := range created {
		printStatus("✓", fmt.Sprintf("Created %s #%d %s", c.Type, c.ID, c.Title), color.FgGreen)
	}
	if err != nil {
		return err
	}
	if generateJSON {
		return printJSON(os.Stdout, created)
	}
	return nil
}

// samplingParams builds call parameters from the flags that were set.
func samplingParams(cmd *cobra.Command, cfg *config.Config) models.InferenceParams {
	params := models.InferenceParams{
		Prompt:    generatePrompt,
		MaxTokens: generateMaxTokens,
	}
	switch {
	case cmd.Flags().Changed("temperature"):
		t := generateTemperature
		params.Temperature = &t
	case cmd.Flags().Changed("top-p"):
		p := generateTopP
		params.TopP = &p
	default:
		t := cfg.Inference.Temperature
		params.Temperature = &t
	}
	return params
}

// draftRefiner returns a tui.Refiner that regenerates drafts in refinement
// mode with the same sampling parameters.
func draftRefiner(eng *decompose.Engine, item models.WorkItem, existing []models.WorkItem, base models.InferenceParams) tui.Refiner {
	return func(ctx context.Context, instructions string, drafts []models.ChildDraft) ([]models.ChildDraft, error) {
		params := base
		params.RefinementInstructions = instructions
		params.GeneratedWorkItems = drafts
		result, err := eng.Generate(ctx, item, existing, params)
		if err != nil {
			return nil, err
		}
		return result.WorkItems, nil
	}
}

// readDrafts accepts either a bare array of drafts or a generation result.
func readDrafts(path string) ([]models.ChildDraft, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	var drafts []models.ChildDraft
	if err := json.Unmarshal(data, &drafts); err == nil {
		return drafts, nil
	}
	var result models.GenerationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode drafts %s: %w", path, err)
	}
	return result.WorkItems, nil
}

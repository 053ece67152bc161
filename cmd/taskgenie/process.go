package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/config"
	"github.com/ShayCichocki/taskgenie/internal/orchestrator"
)

var (
	processItem    workItemFlags
	processRequest string
	processJSON    bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Evaluate a work item and break it down or post feedback",
	Long: `Process runs the full workflow for one work item:

  1. Skip the item if it already carries the Task Genie tag
  2. Evaluate it against the readiness rubric
  3. Not ready: comment with feedback and tag the item
  4. Ready: generate children, create and link them, and tag the parent

Every outcome except a skip is recorded (see "taskgenie results").

The input is either a request document (--request, - for stdin) holding
{"workItem": ..., "params": ..., "sessionId": ...}, optionally wrapped in a
"body" field, or a work item selected with --file or --project/--id.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	processItem.register(processCmd)
	processCmd.Flags().StringVar(&processRequest, "request", "", "Request document (- for stdin)")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "Print the outcome as JSON")
}

func runProcess(cmd *cobra.Command, args []string) error {
	var req orchestrator.Request
	if processRequest != "" {
		data, err := readInput(processRequest)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		parsed, err := orchestrator.ParseRequest(data)
		if err != nil {
			return err
		}
		req = *parsed
	} else if err := processItem.validate(); err != nil {
		return err
	}

	a, err := newApp(appConfig, config.NeedModel|config.NeedTracker)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.logUsage()

	ctx := cmd.Context()
	if processRequest == "" {
		if req.WorkItem, err = processItem.load(ctx, a.tracker); err != nil {
			return err
		}
	}

	events := orchestrator.NewEventEmitter(32, a.logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range events.Events() {
			if !processJSON {
				printEvent(e)
			}
		}
	}()

	p, err := a.processor(events)
	if err != nil {
		events.Close()
		wg.Wait()
		return err
	}
	out, procErr := p.Process(ctx, req)
	events.Close()
	wg.Wait()

	if processJSON {
		if err := printJSON(os.Stdout, out); err != nil {
			return err
		}
	} else {
		fmt.Println()
		fmt.Println(out.Response)
	}
	if procErr != nil {
		return procErr
	}
	return nil
}

func printEvent(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventStarted:
		printStatus("→", fmt.Sprintf("Processing work item #%d (execution %s)", e.WorkItemID, e.ExecutionID), color.FgCyan)
	case orchestrator.EventEvaluated:
		printStatus("•", "Evaluated: "+e.Message, color.FgWhite)
	case orchestrator.EventFeedbackPosted:
		printStatus("⚠", "Work item needs more detail, feedback posted", color.FgYellow)
	case orchestrator.EventGenerated:
		printStatus("•", fmt.Sprintf("Generated %d drafts", e.Count), color.FgWhite)
	case orchestrator.EventChildrenCreated:
		printStatus("•", fmt.Sprintf("Created %d child work items", e.Count), color.FgWhite)
	case orchestrator.EventFinished:
		switch e.Status {
		case orchestrator.StatusError:
			printStatus("✗", string(e.Status), color.FgRed)
		case orchestrator.StatusSkipped:
			printStatus("⚠", string(e.Status), color.FgYellow)
		default:
			printStatus("✓", string(e.Status), color.FgGreen)
		}
	}
}

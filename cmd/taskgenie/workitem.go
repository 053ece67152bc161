package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/ado"
	"github.com/ShayCichocki/taskgenie/internal/config"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// workItemFlags selects the work item a command operates on: a JSON file or
// a tracker lookup by project and id.
type workItemFlags struct {
	file    string
	project string
	id      int
}

func (f *workItemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Work item JSON file (- for stdin)")
	cmd.Flags().StringVar(&f.project, "project", "", "Azure DevOps team project")
	cmd.Flags().IntVar(&f.id, "id", 0, "Work item id to fetch from Azure DevOps")
}

// requirement is the tracker requirement implied by the flags.
func (f *workItemFlags) requirement() config.Requirement {
	if f.file == "" {
		return config.NeedTracker
	}
	return 0
}

func (f *workItemFlags) validate() error {
	switch {
	case f.file != "" && f.id != 0:
		return errors.New("use either --file or --id, not both")
	case f.file == "" && f.id == 0:
		return errors.New("a work item is required (--file or --project/--id)")
	case f.id != 0 && f.project == "":
		return errors.New("--project is required with --id")
	}
	return nil
}

// load returns the selected work item with its process template resolved
// when a tracker is available.
func (f *workItemFlags) load(ctx context.Context, tracker *ado.Client) (models.WorkItem, error) {
	var item models.WorkItem
	if f.file != "" {
		data, err := readInput(f.file)
		if err != nil {
			return item, fmt.Errorf("read work item: %w", err)
		}
		if err := json.Unmarshal(data, &item); err != nil {
			return item, fmt.Errorf("decode work item %s: %w", f.file, err)
		}
		if item.Details == nil {
			item.Details = models.NewDetails(item.Type)
		}
	} else {
		fetched, err := tracker.FetchWorkItem(ctx, f.project, f.id)
		if err != nil {
			return item, err
		}
		item = *fetched
	}

	if tracker != nil && item.ProcessTemplate == models.ProcessUnknown && item.TeamProject != "" {
		if tmpl, err := tracker.ProcessTemplate(ctx, item.TeamProject); err == nil {
			item.ProcessTemplate = tmpl
		}
	}
	return item, nil
}

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/config"
	"github.com/ShayCichocki/taskgenie/internal/knowledge"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWorkItemFlagsValidate(t *testing.T) {
	tests := []struct {
		name    string
		flags   workItemFlags
		wantErr bool
		wantReq config.Requirement
	}{
		{name: "file", flags: workItemFlags{file: "item.json"}, wantReq: 0},
		{name: "tracker", flags: workItemFlags{project: "Payments", id: 7}, wantReq: config.NeedTracker},
		{name: "none", flags: workItemFlags{}, wantErr: true, wantReq: config.NeedTracker},
		{name: "both", flags: workItemFlags{file: "item.json", id: 7}, wantErr: true},
		{name: "id without project", flags: workItemFlags{id: 7}, wantErr: true, wantReq: config.NeedTracker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flags.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if got := tt.flags.requirement(); got != tt.wantReq {
					t.Errorf("requirement() = %v, want %v", got, tt.wantReq)
				}
			}
		})
	}
}

func TestWorkItemFlagsLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "item.json")
	data := `{"workItemId": 12, "workItemType": "User Story", "title": "Checkout", "acceptanceCriteria": "Pays"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	f := workItemFlags{file: path}
	item, err := f.load(t.Context(), nil)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if item.ID != 12 || item.Type != models.WorkItemTypeUserStory || item.Title != "Checkout" {
		t.Errorf("load() = %+v", item)
	}
	if item.Details == nil {
		t.Fatal("Details not set")
	}
	if _, criteria := item.Criteria(); criteria != "Pays" {
		t.Errorf("criteria = %q, want %q", criteria, "Pays")
	}
}

func TestReadDrafts(t *testing.T) {
	dir := t.TempDir()
	bare := filepath.Join(dir, "bare.json")
	wrapped := filepath.Join(dir, "wrapped.json")
	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(bare, []byte(`[{"title": "A"}, {"title": "B"}]`), 0644)
	os.WriteFile(wrapped, []byte(`{"workItems": [{"title": "C"}], "documents": []}`), 0644)
	os.WriteFile(broken, []byte(`{"workItems": `), 0644)

	drafts, err := readDrafts(bare)
	if err != nil || len(drafts) != 2 || drafts[1].Title != "B" {
		t.Errorf("readDrafts(bare) = %+v, %v", drafts, err)
	}
	drafts, err = readDrafts(wrapped)
	if err != nil || len(drafts) != 1 || drafts[0].Title != "C" {
		t.Errorf("readDrafts(wrapped) = %+v, %v", drafts, err)
	}
	if _, err := readDrafts(broken); err == nil {
		t.Error("readDrafts(broken) expected error")
	}
}

func TestSamplingParams(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "generate"}
		cmd.Flags().Float64Var(&generateTemperature, "temperature", 0, "")
		cmd.Flags().Float64Var(&generateTopP, "top-p", 0, "")
		return cmd
	}
	cfg := config.Default()

	p := samplingParams(newCmd(), cfg)
	if p.Temperature == nil || *p.Temperature != cfg.Inference.Temperature || p.TopP != nil {
		t.Errorf("default sampling = %v/%v", p.Temperature, p.TopP)
	}

	cmd := newCmd()
	if err := cmd.Flags().Set("top-p", "0.9"); err != nil {
		t.Fatal(err)
	}
	p = samplingParams(cmd, cfg)
	if p.Temperature != nil || p.TopP == nil || *p.TopP != 0.9 {
		t.Errorf("top-p sampling = %v/%v", p.Temperature, p.TopP)
	}

	cmd = newCmd()
	cmd.Flags().Set("top-p", "0.9")
	cmd.Flags().Set("temperature", "0")
	p = samplingParams(cmd, cfg)
	if p.Temperature == nil || *p.Temperature != 0 || p.TopP != nil {
		t.Errorf("temperature wins: %v/%v", p.Temperature, p.TopP)
	}
}

func TestSearchFilter(t *testing.T) {
	t.Cleanup(func() { kbWorkItemType, kbAreaPath, kbBusinessUnit, kbSystem = "", "", "", "" })

	if f := searchFilter(); f != nil {
		t.Errorf("searchFilter() = %v, want nil", f)
	}

	kbWorkItemType = "Epic"
	f := searchFilter()
	if f == nil || f.Equals == nil || f.Equals.Key != knowledge.KeyWorkItemType {
		t.Fatalf("single filter = %v", f)
	}

	kbAreaPath = "agile-process"
	f = searchFilter()
	if f == nil || len(f.AndAll) != 2 {
		t.Fatalf("combined filter = %v", f)
	}
	if !f.Matches(map[string]string{knowledge.KeyWorkItemType: "Epic", knowledge.KeyAreaPath: "agile-process"}) {
		t.Error("combined filter should match both keys")
	}
}

func TestContextItem(t *testing.T) {
	t.Cleanup(func() { promptContext.workItemType, promptContext.areaPath = "", "" })

	promptContext.workItemType = "Banana"
	if _, err := contextItem(); err == nil {
		t.Error("contextItem() expected error for unknown type")
	}

	promptContext.workItemType = "Feature"
	promptContext.areaPath = "Payments"
	item, err := contextItem()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := item.ConfigKey(), "Feature#Payments##"; got != want {
		t.Errorf("ConfigKey() = %q, want %q", got, want)
	}
}

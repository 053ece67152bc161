package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestWorkItemType_Valid(t *testing.T) {
	tests := []struct {
		name string
		typ  WorkItemType
		want bool
	}{
		{"epic", WorkItemTypeEpic, true},
		{"feature", WorkItemTypeFeature, true},
		{"user story", WorkItemTypeUserStory, true},
		{"product backlog item", WorkItemTypeProductBacklogItem, true},
		{"task", WorkItemTypeTask, true},
		{"empty", WorkItemType(""), false},
		{"bug is not handled", WorkItemType("Bug"), false},
		{"lowercase epic", WorkItemType("epic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Valid(); got != tt.want {
				t.Errorf("WorkItemType(%q).Valid() = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestNormalizeProcessTemplate(t *testing.T) {
	tests := []struct {
		in   string
		want ProcessTemplate
	}{
		{"Scrum", ProcessScrum},
		{"Microsoft Visual Studio Scrum 2.0", ProcessScrum},
		{"Agile", ProcessAgile},
		{"MSF for Agile Software Development", ProcessAgile},
		{"Basic", ProcessBasic},
		{"CMMI", ProcessCMMI},
		{"Custom Inherited", ProcessUnknown},
		{"", ProcessUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeProcessTemplate(tt.in); got != tt.want {
				t.Errorf("NormalizeProcessTemplate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWorkItem_UnmarshalJSON_TypedDetails(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantDetails  Details
		wantCriteria string
		wantLabel    string
	}{
		{
			name: "user story",
			input: `{"workItemId": 7, "workItemType": "User Story", "title": "Login",
				"acceptanceCriteria": "can log in", "importance": "High", "successCriteria": "ignored"}`,
			wantDetails:  &UserStoryDetails{AcceptanceCriteria: "can log in", Importance: "High"},
			wantCriteria: "can log in",
			wantLabel:    LabelAcceptanceCriteria,
		},
		{
			name: "product backlog item",
			input: `{"workItemId": 8, "workItemType": "Product Backlog Item", "title": "Export",
				"acceptanceCriteria": "csv", "releaseNotes": "r", "qaNotes": "q"}`,
			wantDetails:  &BacklogItemDetails{AcceptanceCriteria: "csv", ReleaseNotes: "r", QANotes: "q"},
			wantCriteria: "csv",
			wantLabel:    LabelAcceptanceCriteria,
		},
		{
			name: "epic",
			input: `{"workItemId": 1, "workItemType": "Epic", "title": "Platform",
				"successCriteria": "adopted", "objective": "grow", "acceptanceCriteria": "ignored"}`,
			wantDetails:  &EpicDetails{SuccessCriteria: "adopted", Objective: "grow"},
			wantCriteria: "adopted",
			wantLabel:    LabelSuccessCriteria,
		},
		{
			name: "feature",
			input: `{"workItemId": 2, "workItemType": "Feature", "title": "Search",
				"successCriteria": "fast", "businessDeliverable": "search page"}`,
			wantDetails:  &FeatureDetails{SuccessCriteria: "fast", BusinessDeliverable: "search page"},
			wantCriteria: "fast",
			wantLabel:    LabelSuccessCriteria,
		},
		{
			name:        "task",
			input:       `{"workItemId": 3, "workItemType": "Task", "title": "Wire it"}`,
			wantDetails: &TaskDetails{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w WorkItem
			if err := json.Unmarshal([]byte(tt.input), &w); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(w.Details, tt.wantDetails) {
				t.Errorf("Details = %#v, want %#v", w.Details, tt.wantDetails)
			}
			label, value := w.Criteria()
			if label != tt.wantLabel || value != tt.wantCriteria {
				t.Errorf("Criteria() = (%q, %q), want (%q, %q)", label, value, tt.wantLabel, tt.wantCriteria)
			}
		})
	}
}

func TestWorkItem_UnmarshalJSON_Tags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"list", `{"workItemType": "Task", "tags": ["a", "Task Genie"]}`, []string{"a", "Task Genie"}},
		{"joined string", `{"workItemType": "Task", "tags": "a; Task Genie;"}`, []string{"a", "Task Genie"}},
		{"missing", `{"workItemType": "Task"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w WorkItem
			if err := json.Unmarshal([]byte(tt.input), &w); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(w.Tags, tt.want) {
				t.Errorf("Tags = %#v, want %#v", w.Tags, tt.want)
			}
		})
	}
}

func TestWorkItem_MarshalJSON_FlattensDetails(t *testing.T) {
	w := NewWorkItem(WorkItemTypeFeature)
	w.ID = 42
	w.Title = "Search"
	w.Details.(*FeatureDetails).SuccessCriteria = "fast"

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal into map failed: %v", err)
	}
	if flat["successCriteria"] != "fast" {
		t.Errorf("successCriteria = %v, want %q", flat["successCriteria"], "fast")
	}
	if flat["workItemType"] != "Feature" {
		t.Errorf("workItemType = %v, want Feature", flat["workItemType"])
	}
	if _, ok := flat["acceptanceCriteria"]; ok {
		t.Error("acceptanceCriteria should be omitted for a Feature")
	}
}

func TestWorkItem_HasTag(t *testing.T) {
	w := WorkItem{Tags: []string{"backend", " task genie "}}

	if !w.HasTag("Task Genie") {
		t.Error("HasTag(Task Genie) = false, want true")
	}
	if w.HasTag("frontend") {
		t.Error("HasTag(frontend) = true, want false")
	}
}

func TestWorkItem_ConfigKey(t *testing.T) {
	w := WorkItem{
		Type:         WorkItemTypeUserStory,
		AreaPath:     `Project\Team`,
		BusinessUnit: "Retail",
		System:       "Checkout",
	}

	want := `User Story#Project\Team#Retail#Checkout`
	if got := w.ConfigKey(); got != want {
		t.Errorf("ConfigKey() = %q, want %q", got, want)
	}

	empty := WorkItem{Type: WorkItemTypeTask}
	if got := empty.ConfigKey(); got != "Task###" {
		t.Errorf("ConfigKey() with empty context = %q, want %q", got, "Task###")
	}
}

func TestDetails_PromptFieldsOmitEmpty(t *testing.T) {
	d := &EpicDetails{Objective: "grow", PursueRisk: "", OutstandingActionItems: "ship"}

	got := d.PromptFields()
	want := []Field{
		{Label: "Objective", Value: "grow"},
		{Label: "Outstanding Action Items", Value: "ship"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PromptFields() = %#v, want %#v", got, want)
	}
}

func TestDetailsFromFields(t *testing.T) {
	d := DetailsFromFields(WorkItemTypeProductBacklogItem, map[string]string{
		FieldAcceptanceCriteria: "done when exported",
		FieldQANotes:            "check csv",
		FieldSuccessCriteria:    "ignored",
	})

	want := &BacklogItemDetails{AcceptanceCriteria: "done when exported", QANotes: "check csv"}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("DetailsFromFields() = %#v, want %#v", d, want)
	}

	for _, f := range d.StorageFields() {
		if f.Ref == "" {
			t.Errorf("storage field %q has no reference", f.Label)
		}
	}
}

func TestChildDraft_ToWorkItem(t *testing.T) {
	parent := WorkItem{
		ID:            10,
		Type:          WorkItemTypeFeature,
		AreaPath:      "Area",
		IterationPath: "Sprint 1",
		BusinessUnit:  "BU",
		System:        "Sys",
		ValueArea:     "Business",
		TeamProject:   "Proj",
	}
	draft := ChildDraft{Title: "1. Story", Description: "desc", AcceptanceCriteria: "ac"}

	child := draft.ToWorkItem(parent, WorkItemTypeUserStory)

	if child.Type != WorkItemTypeUserStory {
		t.Errorf("Type = %q, want User Story", child.Type)
	}
	if child.AreaPath != "Area" || child.IterationPath != "Sprint 1" || child.TeamProject != "Proj" {
		t.Errorf("placement not inherited: %+v", child)
	}
	if child.BusinessUnit != "BU" || child.System != "Sys" || child.ValueArea != "Business" {
		t.Errorf("organisation tags not inherited: %+v", child)
	}
	if _, v := child.Criteria(); v != "ac" {
		t.Errorf("criteria = %q, want %q", v, "ac")
	}
}

package models

import "strings"

// DefaultTemperature is used when neither temperature nor top-p is given.
const DefaultTemperature = 0.5

// InferenceParams are the caller-supplied knobs for a generation call.
type InferenceParams struct {
	// Prompt overrides the base generation prompt.
	Prompt string `json:"prompt,omitempty"`
	// Temperature takes precedence over TopP when both are set.
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	// MaxTokens is the output token ceiling. Zero means the default.
	MaxTokens int `json:"maxTokens,omitempty"`
	// RefinementInstructions and GeneratedWorkItems together select
	// refinement mode.
	RefinementInstructions string       `json:"refinementInstructions,omitempty"`
	GeneratedWorkItems     []ChildDraft `json:"generatedWorkItems,omitempty"`
}

// IsRefinement reports whether the params request refinement of an existing
// draft rather than fresh generation.
func (p InferenceParams) IsRefinement() bool {
	return strings.TrimSpace(p.RefinementInstructions) != "" && len(p.GeneratedWorkItems) > 0
}

// Sampling resolves the sampling parameter to send. Exactly one of the two
// return values is non-nil.
func (p InferenceParams) Sampling() (temperature, topP *float64) {
	switch {
	case p.Temperature != nil:
		return p.Temperature, nil
	case p.TopP != nil:
		return nil, p.TopP
	default:
		t := DefaultTemperature
		return &t, nil
	}
}

// ChildDraft is a child work item proposed by the model.
type ChildDraft struct {
	// ID is set once the draft has been created in the tracking system.
	ID                  int    `json:"workItemId,omitempty"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	AcceptanceCriteria  string `json:"acceptanceCriteria,omitempty"`
	SuccessCriteria     string `json:"successCriteria,omitempty"`
	BusinessDeliverable string `json:"businessDeliverable,omitempty"`
	Importance          string `json:"importance,omitempty"`
}

// ToWorkItem converts the draft into a work item of type t placed under
// parent. Area, iteration and organisation tags are inherited.
func (d ChildDraft) ToWorkItem(parent WorkItem, t WorkItemType) WorkItem {
	item := WorkItem{
		ID:              d.ID,
		Type:            t,
		ProcessTemplate: parent.ProcessTemplate,
		TeamProject:     parent.TeamProject,
		Title:           d.Title,
		Description:     d.Description,
		AreaPath:        parent.AreaPath,
		IterationPath:   parent.IterationPath,
		BusinessUnit:    parent.BusinessUnit,
		System:          parent.System,
		ValueArea:       parent.ValueArea,
	}
	item.Details = detailsFromWire(t, wireFields{
		AcceptanceCriteria:  d.AcceptanceCriteria,
		SuccessCriteria:     d.SuccessCriteria,
		BusinessDeliverable: d.BusinessDeliverable,
		Importance:          d.Importance,
	})
	return item
}

// EvaluationResult is the readiness verdict for a work item.
type EvaluationResult struct {
	Pass bool `json:"pass"`
	// Comment explains a failing verdict.
	Comment string `json:"comment,omitempty"`
	// Sources lists every retrieved knowledge document, cited or not.
	Sources []string `json:"sources"`
}

// GenerationResult is the ordered set of drafts produced for a work item.
type GenerationResult struct {
	WorkItems []ChildDraft        `json:"workItems"`
	Documents []KnowledgeDocument `json:"documents"`
}

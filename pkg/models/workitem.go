package models

import (
	"encoding/json"
	"strings"
)

// WorkItemType is the tracking-system type of a work item.
type WorkItemType string

const (
	// WorkItemTypeEpic is a high-level business objective.
	WorkItemTypeEpic WorkItemType = "Epic"
	// WorkItemTypeFeature is a cohesive piece of user-facing functionality.
	WorkItemTypeFeature WorkItemType = "Feature"
	// WorkItemTypeUserStory is the Agile-process backlog item.
	WorkItemTypeUserStory WorkItemType = "User Story"
	// WorkItemTypeProductBacklogItem is the Scrum-process backlog item.
	WorkItemTypeProductBacklogItem WorkItemType = "Product Backlog Item"
	// WorkItemTypeTask is a unit of developer work.
	WorkItemTypeTask WorkItemType = "Task"
)

// Valid returns true if the type is a known value.
func (t WorkItemType) Valid() bool {
	switch t {
	case WorkItemTypeEpic, WorkItemTypeFeature, WorkItemTypeUserStory,
		WorkItemTypeProductBacklogItem, WorkItemTypeTask:
		return true
	default:
		return false
	}
}

// IsBacklogItem reports whether the type is a User Story or Product Backlog Item.
// Backlog items carry acceptance criteria.
func (t WorkItemType) IsBacklogItem() bool {
	return t == WorkItemTypeUserStory || t == WorkItemTypeProductBacklogItem
}

// IsPortfolioItem reports whether the type is an Epic or Feature.
// Portfolio items carry success criteria.
func (t WorkItemType) IsPortfolioItem() bool {
	return t == WorkItemTypeEpic || t == WorkItemTypeFeature
}

// ProcessTemplate is the project process the work item lives in.
type ProcessTemplate string

const (
	ProcessScrum   ProcessTemplate = "Scrum"
	ProcessAgile   ProcessTemplate = "Agile"
	ProcessBasic   ProcessTemplate = "Basic"
	ProcessCMMI    ProcessTemplate = "CMMI"
	ProcessUnknown ProcessTemplate = ""
)

// NormalizeProcessTemplate maps a template name reported by the tracking
// system ("Microsoft Visual Studio Scrum 2.0", "Agile", ...) onto a known
// template. Unrecognised names map to ProcessUnknown.
func NormalizeProcessTemplate(name string) ProcessTemplate {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "scrum"):
		return ProcessScrum
	case strings.Contains(lower, "agile"):
		return ProcessAgile
	case strings.Contains(lower, "basic"):
		return ProcessBasic
	case strings.Contains(lower, "cmmi"):
		return ProcessCMMI
	default:
		return ProcessUnknown
	}
}

// Image is an image reference embedded in a work item.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// WorkItem is a tracking-system work item. Fields shared by every type live
// on the struct; type-specific fields live in Details.
type WorkItem struct {
	// ID is the tracking-system identifier.
	ID int `json:"workItemId"`
	// Rev is the revision number, if known.
	Rev int `json:"rev,omitempty"`
	// Type is the work item type.
	Type WorkItemType `json:"workItemType"`
	// ProcessTemplate is the project process, if known.
	ProcessTemplate ProcessTemplate `json:"processTemplate,omitempty"`
	// TeamProject is the project the item belongs to.
	TeamProject string `json:"teamProject,omitempty"`
	// Title is the item title.
	Title string `json:"title"`
	// Description is the item description, usually HTML.
	Description string `json:"description"`
	// State is the workflow state (New, Active, Closed, ...).
	State string `json:"state,omitempty"`
	// AreaPath and IterationPath locate the item in the project.
	AreaPath      string `json:"areaPath,omitempty"`
	IterationPath string `json:"iterationPath,omitempty"`
	// BusinessUnit, System and ValueArea are organisation tags.
	BusinessUnit string `json:"businessUnit,omitempty"`
	System       string `json:"system,omitempty"`
	ValueArea    string `json:"amaValueArea,omitempty"`
	// ChangedBy is the display name of the last editor.
	ChangedBy string `json:"changedBy,omitempty"`
	// OriginalChangedBy is the editor that triggered processing, when the
	// request carries one.
	OriginalChangedBy string `json:"originalChangedBy,omitempty"`
	// Tags are the item tags.
	Tags []string `json:"tags,omitempty"`
	// Images are image references found in the item.
	Images []Image `json:"images,omitempty"`
	// Details holds the type-specific fields. Never nil after unmarshalling
	// or NewWorkItem.
	Details Details `json:"-"`
}

// NewWorkItem creates a work item of the given type with empty details.
func NewWorkItem(t WorkItemType) WorkItem {
	return WorkItem{Type: t, Details: NewDetails(t)}
}

// Criteria returns the criteria label and value for the item. User Stories and
// Product Backlog Items use acceptance criteria, Epics and Features use
// success criteria. Other types have no criteria.
func (w WorkItem) Criteria() (label, value string) {
	if w.Details == nil {
		return "", ""
	}
	return w.Details.Criteria()
}

// HasTag reports whether the item carries the tag (case-insensitive).
func (w WorkItem) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// ConfigKey returns the compound key used to look up per-context prompt
// overrides: type#areaPath#businessUnit#system.
func (w WorkItem) ConfigKey() string {
	return strings.Join([]string{string(w.Type), w.AreaPath, w.BusinessUnit, w.System}, "#")
}

// workItemAlias avoids recursion in the JSON methods.
type workItemAlias WorkItem

// wireFields is the flat union of every type-specific field, as carried on
// the wire.
type wireFields struct {
	AcceptanceCriteria     string `json:"acceptanceCriteria,omitempty"`
	SuccessCriteria        string `json:"successCriteria,omitempty"`
	Objective              string `json:"objective,omitempty"`
	AddressedRisks         string `json:"addressedRisks,omitempty"`
	PursueRisk             string `json:"pursueRisk,omitempty"`
	MostRecentUpdate       string `json:"mostRecentUpdate,omitempty"`
	OutstandingActionItems string `json:"outstandingActionItems,omitempty"`
	BusinessDeliverable    string `json:"businessDeliverable,omitempty"`
	ReleaseNotes           string `json:"releaseNotes,omitempty"`
	QANotes                string `json:"qaNotes,omitempty"`
	Importance             string `json:"importance,omitempty"`
}

// UnmarshalJSON decodes the flat wire shape into the base record plus typed
// details. Tags may arrive as a list or as a "; " separated string.
func (w *WorkItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		workItemAlias
		Tags json.RawMessage `json:"tags,omitempty"`
		wireFields
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = WorkItem(raw.workItemAlias)
	w.Tags = decodeTags(raw.Tags)
	w.Details = detailsFromWire(w.Type, raw.wireFields)
	return nil
}

// MarshalJSON flattens the typed details back into the wire shape.
func (w WorkItem) MarshalJSON() ([]byte, error) {
	var fields wireFields
	if w.Details != nil {
		fields = w.Details.wire()
	}
	return json.Marshal(struct {
		workItemAlias
		wireFields
	}{workItemAlias(w), fields})
}

func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil
	}
	return SplitTags(joined)
}

// SplitTags splits a tracking-system tag string ("a; b; c").
func SplitTags(joined string) []string {
	var tags []string
	for _, t := range strings.Split(joined, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

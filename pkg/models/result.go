package models

import "time"

// ExecutionResult is the overall outcome of processing a request.
type ExecutionResult string

const (
	ExecutionSucceeded ExecutionResult = "SUCCEEDED"
	ExecutionFailed    ExecutionResult = "FAILED"
)

// WorkItemSummary is the compact form of a work item stored with a result.
type WorkItemSummary struct {
	ID          int          `json:"workItemId"`
	Type        WorkItemType `json:"workItemType"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Criteria    string       `json:"criteria,omitempty"`
}

// Summarize returns the summary of w.
func Summarize(w WorkItem) WorkItemSummary {
	_, criteria := w.Criteria()
	return WorkItemSummary{
		ID:          w.ID,
		Type:        w.Type,
		Title:       w.Title,
		Description: w.Description,
		Criteria:    criteria,
	}
}

// ResultRecord is the durable record of one processing run, keyed by
// execution id.
type ResultRecord struct {
	ExecutionID     string            `json:"executionId"`
	ExecutionResult ExecutionResult   `json:"executionResult"`
	Timestamp       time.Time         `json:"timestamp"`
	WorkItemID      int               `json:"workItemId"`
	WorkItemStatus  string            `json:"workItemStatus"`
	WorkItemComment string            `json:"workItemComment,omitempty"`
	WorkItem        WorkItemSummary   `json:"workItem"`
	WorkItemsCount  int               `json:"workItemsCount"`
	WorkItemIDs     []int             `json:"workItemIds,omitempty"`
	WorkItems       []WorkItemSummary `json:"workItems,omitempty"`
	ChangedBy       string            `json:"changedBy,omitempty"`
	AreaPath        string            `json:"areaPath,omitempty"`
	IterationPath   string            `json:"iterationPath,omitempty"`
	BusinessUnit    string            `json:"businessUnit,omitempty"`
	System          string            `json:"system,omitempty"`
}

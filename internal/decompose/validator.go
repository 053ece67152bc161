package decompose

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/taskgenie/internal/prompt"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// ValidationResult contains the results of validating generated drafts.
// Errors make the drafts unusable; warnings are logged.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateDrafts checks drafts for missing titles and for titles that repeat
// each other or an existing child of the parent.
func ValidateDrafts(drafts []models.ChildDraft, existing []models.WorkItem) ValidationResult {
	result := ValidationResult{Valid: true}

	known := make(map[string]bool, len(existing))
	for _, child := range existing {
		known[normalizeTitle(child.Title)] = true
	}

	seen := make(map[string]int, len(drafts))
	for i, d := range drafts {
		title := normalizeTitle(d.Title)
		if title == "" {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("workItems[%d] has no title", i))
			continue
		}
		if known[title] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%q duplicates an existing child work item", d.Title))
		}
		if j, dup := seen[title]; dup {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("workItems[%d] repeats the title of workItems[%d]", i, j))
		}
		seen[title] = i
		if strings.TrimSpace(prompt.StripMarkup(d.Description)) == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%q has no description", d.Title))
		}
	}
	return result
}

// normalizeTitle lower-cases a title and drops the "N. " order prefix the
// model is asked to add.
func normalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if i := strings.Index(t, ". "); i > 0 && isDigits(t[:i]) {
		t = strings.TrimSpace(t[i+2:])
	}
	return t
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

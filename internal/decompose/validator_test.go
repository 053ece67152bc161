package decompose

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

func TestValidateDrafts(t *testing.T) {
	existing := []models.WorkItem{{Title: "Store card token"}}

	tests := []struct {
		name         string
		drafts       []models.ChildDraft
		wantValid    bool
		wantErrors   int
		wantWarnings []string
	}{
		{
			name:      "titled drafts",
			drafts:    []models.ChildDraft{{Title: "1. Add form", Description: "d"}, {Title: "2. Wire API", Description: "d"}},
			wantValid: true,
		},
		{
			name:       "untitled draft fails the set",
			drafts:     []models.ChildDraft{{Title: "1. Add form", Description: "d"}, {Title: "  ", Description: "d"}},
			wantValid:  false,
			wantErrors: 1,
		},
		{
			name:         "duplicate of existing child only warns",
			drafts:       []models.ChildDraft{{Title: "1. store card token", Description: "d"}},
			wantValid:    true,
			wantWarnings: []string{"duplicates an existing child"},
		},
		{
			name:         "repeated title only warns",
			drafts:       []models.ChildDraft{{Title: "1. Add form", Description: "d"}, {Title: "2. add form", Description: "d"}},
			wantValid:    true,
			wantWarnings: []string{"repeats the title of workItems[0]"},
		},
		{
			name:         "empty description only warns",
			drafts:       []models.ChildDraft{{Title: "1. Add form", Description: "<p></p>"}},
			wantValid:    true,
			wantWarnings: []string{"has no description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDrafts(tt.drafts, existing)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", got.Valid, tt.wantValid, got.Errors)
			}
			if len(got.Errors) != tt.wantErrors {
				t.Errorf("Errors = %v, want %d", got.Errors, tt.wantErrors)
			}
			if len(got.Warnings) != len(tt.wantWarnings) {
				t.Fatalf("Warnings = %v, want %v", got.Warnings, tt.wantWarnings)
			}
			for i, want := range tt.wantWarnings {
				if !strings.Contains(got.Warnings[i], want) {
					t.Errorf("Warnings[%d] = %q, want it to contain %q", i, got.Warnings[i], want)
				}
			}
		})
	}
}

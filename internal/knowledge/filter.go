package knowledge

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// DefaultGuidelineAreaPath is the area path tag carried by process guideline
// documents.
const DefaultGuidelineAreaPath = "agile-process"

// Metadata keys understood by filters.
const (
	KeyWorkItemType = "workItemType"
	KeyAreaPath     = "areaPath"
	KeyBusinessUnit = "businessUnit"
	KeySystem       = "system"
)

// Condition is an exact-match test on one metadata key.
type Condition struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Filter restricts a search. Exactly one of Equals or AndAll is set.
type Filter struct {
	Equals *Condition `json:"equals,omitempty"`
	AndAll []Filter   `json:"andAll,omitempty"`
}

// Eq returns a single-condition filter.
func Eq(key, value string) Filter {
	return Filter{Equals: &Condition{Key: key, Value: value}}
}

// Conditions flattens the filter into its equality conditions.
func (f *Filter) Conditions() []Condition {
	if f == nil {
		return nil
	}
	if f.Equals != nil {
		return []Condition{*f.Equals}
	}
	var out []Condition
	for i := range f.AndAll {
		out = append(out, f.AndAll[i].Conditions()...)
	}
	return out
}

// Matches reports whether metadata satisfies every condition. A nil filter
// matches everything.
func (f *Filter) Matches(metadata map[string]string) bool {
	for _, c := range f.Conditions() {
		if metadata[c.Key] != c.Value {
			return false
		}
	}
	return true
}

// String renders the filter for logs.
func (f *Filter) String() string {
	conds := f.Conditions()
	if len(conds) == 0 {
		return "none"
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = fmt.Sprintf("%s=%q", c.Key, c.Value)
	}
	return strings.Join(parts, " AND ")
}

// EvaluationFilter selects the guideline documents for the item's type.
func EvaluationFilter(t models.WorkItemType, guidelineAreaPath string) *Filter {
	if guidelineAreaPath == "" {
		guidelineAreaPath = DefaultGuidelineAreaPath
	}
	return &Filter{AndAll: []Filter{
		Eq(KeyWorkItemType, string(t)),
		Eq(KeyAreaPath, guidelineAreaPath),
	}}
}

// BreakdownFilter selects context documents matching whichever of type, area
// path, business unit and system the item has. Two or more conditions are
// combined with AND, a single condition is used as is, and no conditions
// yields a nil filter.
func BreakdownFilter(item models.WorkItem) *Filter {
	var conds []Filter
	if item.Type != "" {
		conds = append(conds, Eq(KeyWorkItemType, string(item.Type)))
	}
	if item.AreaPath != "" {
		conds = append(conds, Eq(KeyAreaPath, item.AreaPath))
	}
	if item.BusinessUnit != "" {
		conds = append(conds, Eq(KeyBusinessUnit, item.BusinessUnit))
	}
	if item.System != "" {
		conds = append(conds, Eq(KeySystem, item.System))
	}

	switch len(conds) {
	case 0:
		return nil
	case 1:
		return &conds[0]
	default:
		return &Filter{AndAll: conds}
	}
}

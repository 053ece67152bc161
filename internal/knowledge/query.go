package knowledge

import (
	"fmt"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// EvaluationQuery asks for process guidance that helps judge whether item is
// well defined.
func EvaluationQuery(item models.WorkItem) string {
	label := models.LabelSuccessCriteria
	if item.Type.IsBacklogItem() {
		label = models.LabelAcceptanceCriteria
	}
	_, criteria := item.Criteria()

	return fmt.Sprintf(`Find relevant information about the %[1]s process and guidelines that would help evaluate the following %[1]s is well-defined:
    - Title: %[2]s
    - Description: %[3]s
    - %[4]s: %[5]s`, item.Type, item.Title, item.Description, label, criteria)
}

// BreakdownQuery asks for technical, business and architectural context that
// helps decompose item.
func BreakdownQuery(item models.WorkItem) string {
	q := fmt.Sprintf(`Find relevant information to help break down the %[1]s (such as technical details, application architecture, business context, etc.) for the following %[1]s:
    - Title: %[2]s
    - Description: %[3]s`, item.Type, item.Title, item.Description)

	if label, criteria := item.Criteria(); criteria != "" {
		q += fmt.Sprintf("\n    - %s: %s", label, criteria)
	}
	return q
}

package prompt

import "github.com/ShayCichocki/taskgenie/pkg/models"

const evaluationSystemTemplate = `You are an AI assistant that reviews Azure DevOps work items.
**Instructions**
- Evaluate the work item to check if it is reasonably clear and has enough detail for a developer or team to begin with minimal clarification.
- Your task is to assess the quality of a %[1]s based on the provided title, description, and available criteria fields.
%[2]s
  - If images are provided, treat them as additional context to understand the work item.

**Output Rules**
- Return a JSON object with the following structure:
  - "pass": boolean (true if the work item is good enough to proceed, false only if it is seriously incomplete or confusing)
  - if "pass" is false, include a "comment" field (string) with a clear explanation of what's missing or unclear, and provide an example of a higher-quality %[1]s that would pass. If you have multiple feedback points, use line breaks and indentations with HTML tags.
- Only output the JSON object, no extra text outside it.`

const backlogItemRubric = `- Evaluate the %s based on the following criteria:
  - It should generally state the user, the need, and the business value in some way.
  - The acceptance criteria should provide guidance that is testable or verifiable, though it need not be exhaustive.
  - The story should be appropriately sized for a development team to complete within a sprint.`

const epicRubric = `- Evaluate the epic based on the following criteria:
  - It should clearly describe a high-level business objective or strategic goal.
  - The description should provide sufficient business context and rationale.
  - Success criteria should define measurable outcomes or business value.
  - The scope should be appropriate for breaking down into multiple features.`

const featureRubric = `- Evaluate the feature based on the following criteria:
  - It should describe a cohesive piece of functionality that delivers user value.
  - The description should clearly define the functional boundaries and user interactions.
  - Success criteria should be testable and define what constitutes completion.
  - The scope should be appropriate for breaking down into multiple user stories.`

const backlogItemGenerationPrompt = `You are an expert Agile software development assistant that specializes in decomposing a %[1]s into clear, actionable, and appropriately sized Tasks.
**Instructions**
- Your task is to break down the provided %[1]s into a sequence of Tasks that are clear and actionable for developers to work on. Each task should be independent and deployable.
- Ensure each Task has a title and a description that guides the developer (why, what, how, technical details, references to relevant systems/APIs).
- Avoid creating duplicate Tasks if they already exist.
- Do NOT create any Tasks for analysis, investigation, testing, or deployment.`

const featureGenerationPrompt = `You are an expert Agile software development assistant that specializes in decomposing a Feature into clear, actionable, and appropriately sized %[1]s.
**Instructions**
- Your task is to break down the provided Feature into a sequence of %[1]s that are clear and deliver business value.
- Ensure each %[2]s has a title, description, and acceptance criteria.
- Avoid creating duplicate %[1]s if they already exist.`

const epicGenerationPrompt = `You are an expert Agile software development assistant that specializes in decomposing an Epic into clear, actionable, and appropriately sized Features.
**Instructions**
- Your task is to break down the provided Epic into a sequence of Features that are clear and deliver business value.
- Ensure each Feature has a title and a comprehensive description.
- Avoid creating duplicate Features if they already exist.`

const genericGenerationPrompt = `You are an expert Agile software development assistant that specializes in decomposing work items into clear, actionable, and appropriately sized child work items.
**Instructions**
- Your task is to break down the provided work item into a sequence of child work items that are clear and actionable.
- Ensure each child work item has a title and a description.
- Avoid creating duplicate child work items if they already exist.`

// outputField is one key of the generation output schema.
type outputField struct {
	key  string
	desc string
}

// outputSchema returns the object noun and the keys each generated object
// carries for a parent of the given type.
func outputSchema(item models.WorkItem) (noun string, fields []outputField) {
	switch item.Type {
	case models.WorkItemTypeEpic:
		return "feature", []outputField{
			{"title", `string (feature title, prefixed with order, e.g., "1. Feature Title")`},
			{"description", "string (detailed feature description with HTML formatting)"},
			{"successCriteria", "string (detailed success criteria with HTML formatting)"},
		}
	case models.WorkItemTypeFeature:
		if item.ProcessTemplate == models.ProcessScrum {
			return "product backlog item", []outputField{
				{"title", `string (product backlog item title, prefixed with order, e.g., "1. Product Backlog Item Title")`},
				{"description", "string (detailed product backlog item description with HTML formatting)"},
				{"acceptanceCriteria", "string (detailed acceptance criteria with HTML formatting)"},
			}
		}
		return "user story", []outputField{
			{"title", `string (user story title, prefixed with order, e.g., "1. User Story Title")`},
			{"description", "string (detailed user story description with HTML formatting)"},
			{"acceptanceCriteria", "string (detailed acceptance criteria with HTML formatting)"},
		}
	case models.WorkItemTypeUserStory, models.WorkItemTypeProductBacklogItem:
		return "task", []outputField{
			{"title", `string (task title, prefixed with order, e.g., "1. Task Title")`},
			{"description", "string (detailed task description with HTML formatting)"},
		}
	default:
		return "child work item", []outputField{
			{"title", `string (child work item title, prefixed with order, e.g., "1. Work Item Title")`},
			{"description", "string (detailed description with HTML formatting)"},
		}
	}
}

package models

// ExpectedChildType returns the type a child of item is expected to have,
// singular or plural. The bool is false for Tasks and unknown types, which
// have no expected child type.
//
//	Epic                                -> Feature(s)
//	Feature (Scrum)                     -> Product Backlog Item(s)
//	Feature (any other template)        -> User Story / User Stories
//	User Story, Product Backlog Item    -> Task(s)
func ExpectedChildType(item WorkItem, plural bool) (string, bool) {
	child, ok := ExpectedChildWorkItemType(item)
	if !ok {
		return "", false
	}
	if plural {
		return Plural(child), true
	}
	return string(child), true
}

// ExpectedChildWorkItemType is ExpectedChildType in singular form, typed.
func ExpectedChildWorkItemType(item WorkItem) (WorkItemType, bool) {
	switch item.Type {
	case WorkItemTypeEpic:
		return WorkItemTypeFeature, true
	case WorkItemTypeFeature:
		if item.ProcessTemplate == ProcessScrum {
			return WorkItemTypeProductBacklogItem, true
		}
		return WorkItemTypeUserStory, true
	case WorkItemTypeUserStory, WorkItemTypeProductBacklogItem:
		return WorkItemTypeTask, true
	default:
		return "", false
	}
}

// Plural returns the plural display form of a work item type.
func Plural(t WorkItemType) string {
	switch t {
	case WorkItemTypeUserStory:
		return "User Stories"
	case "":
		return ""
	default:
		return string(t) + "s"
	}
}

package models

// Tracking-system field references for the type-specific fields.
const (
	FieldAcceptanceCriteria     = "Microsoft.VSTS.Common.AcceptanceCriteria"
	FieldSuccessCriteria        = "Custom.SuccessCriteria"
	FieldObjective              = "Custom.Objective"
	FieldAddressedRisks         = "Custom.AddressedRisks"
	FieldPursueRisk             = "Custom.PursueRisk"
	FieldMostRecentUpdate       = "Custom.MostRecentUpdate"
	FieldOutstandingActionItems = "Custom.OutstandingActionItems"
	FieldBusinessDeliverable    = "Custom.BusinessDeliverable"
	FieldReleaseNotes           = "Custom.ReleaseNotes"
	FieldQANotes                = "Custom.QANotes"
	FieldImportance             = "Custom.Importance"
)

// Labels used when rendering fields into prompts.
const (
	LabelAcceptanceCriteria = "Acceptance Criteria"
	LabelSuccessCriteria    = "Success Criteria"
)

// Field is a labelled value. Ref is the tracking-system field reference and is
// only set for storage fields.
type Field struct {
	Label string
	Ref   string
	Value string
}

// Details holds the fields that only exist on one work item type.
type Details interface {
	// Criteria returns the criteria label and value, or empty strings when the
	// type has none.
	Criteria() (label, value string)
	// PromptFields returns the non-empty optional fields shown when the item
	// itself is described in a prompt. Criteria are not included.
	PromptFields() []Field
	// SummaryFields returns the non-empty fields shown when the item is listed
	// as an existing child of another item.
	SummaryFields() []Field
	// StorageFields returns every type-specific field with its tracking-system
	// reference, empty values included.
	StorageFields() []Field

	wire() wireFields
}

// NewDetails returns empty details for the type. Unknown types get
// TaskDetails, which carry no extra fields.
func NewDetails(t WorkItemType) Details {
	switch t {
	case WorkItemTypeEpic:
		return &EpicDetails{}
	case WorkItemTypeFeature:
		return &FeatureDetails{}
	case WorkItemTypeUserStory:
		return &UserStoryDetails{}
	case WorkItemTypeProductBacklogItem:
		return &BacklogItemDetails{}
	default:
		return &TaskDetails{}
	}
}

// DetailsFromFields builds details for the type from tracking-system field
// values keyed by field reference. Missing keys yield empty values.
func DetailsFromFields(t WorkItemType, fields map[string]string) Details {
	return detailsFromWire(t, wireFields{
		AcceptanceCriteria:     fields[FieldAcceptanceCriteria],
		SuccessCriteria:        fields[FieldSuccessCriteria],
		Objective:              fields[FieldObjective],
		AddressedRisks:         fields[FieldAddressedRisks],
		PursueRisk:             fields[FieldPursueRisk],
		MostRecentUpdate:       fields[FieldMostRecentUpdate],
		OutstandingActionItems: fields[FieldOutstandingActionItems],
		BusinessDeliverable:    fields[FieldBusinessDeliverable],
		ReleaseNotes:           fields[FieldReleaseNotes],
		QANotes:                fields[FieldQANotes],
		Importance:             fields[FieldImportance],
	})
}

// ConvertDetails re-reads d as the details of type t. Fields t does not carry
// are dropped. A nil d yields empty details.
func ConvertDetails(d Details, t WorkItemType) Details {
	if d == nil {
		return NewDetails(t)
	}
	return detailsFromWire(t, d.wire())
}

func detailsFromWire(t WorkItemType, f wireFields) Details {
	switch t {
	case WorkItemTypeEpic:
		return &EpicDetails{
			SuccessCriteria:        f.SuccessCriteria,
			Objective:              f.Objective,
			AddressedRisks:         f.AddressedRisks,
			PursueRisk:             f.PursueRisk,
			MostRecentUpdate:       f.MostRecentUpdate,
			OutstandingActionItems: f.OutstandingActionItems,
		}
	case WorkItemTypeFeature:
		return &FeatureDetails{
			SuccessCriteria:     f.SuccessCriteria,
			BusinessDeliverable: f.BusinessDeliverable,
		}
	case WorkItemTypeUserStory:
		return &UserStoryDetails{
			AcceptanceCriteria: f.AcceptanceCriteria,
			Importance:         f.Importance,
		}
	case WorkItemTypeProductBacklogItem:
		return &BacklogItemDetails{
			AcceptanceCriteria: f.AcceptanceCriteria,
			ReleaseNotes:       f.ReleaseNotes,
			QANotes:            f.QANotes,
		}
	default:
		return &TaskDetails{}
	}
}

// nonEmpty filters out fields with empty values.
func nonEmpty(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// EpicDetails are the Epic-only fields.
type EpicDetails struct {
	SuccessCriteria        string
	Objective              string
	AddressedRisks         string
	PursueRisk             string
	MostRecentUpdate       string
	OutstandingActionItems string
}

func (d *EpicDetails) Criteria() (string, string) { return LabelSuccessCriteria, d.SuccessCriteria }

func (d *EpicDetails) PromptFields() []Field {
	return nonEmpty(
		Field{Label: "Objective", Value: d.Objective},
		Field{Label: "Addressed Risks", Value: d.AddressedRisks},
		Field{Label: "Pursue Risk", Value: d.PursueRisk},
		Field{Label: "Most Recent Update", Value: d.MostRecentUpdate},
		Field{Label: "Outstanding Action Items", Value: d.OutstandingActionItems},
	)
}

func (d *EpicDetails) SummaryFields() []Field {
	return nonEmpty(Field{Label: LabelSuccessCriteria, Value: d.SuccessCriteria})
}

func (d *EpicDetails) StorageFields() []Field {
	return []Field{
		{Label: LabelSuccessCriteria, Ref: FieldSuccessCriteria, Value: d.SuccessCriteria},
		{Label: "Objective", Ref: FieldObjective, Value: d.Objective},
		{Label: "Addressed Risks", Ref: FieldAddressedRisks, Value: d.AddressedRisks},
		{Label: "Pursue Risk", Ref: FieldPursueRisk, Value: d.PursueRisk},
		{Label: "Most Recent Update", Ref: FieldMostRecentUpdate, Value: d.MostRecentUpdate},
		{Label: "Outstanding Action Items", Ref: FieldOutstandingActionItems, Value: d.OutstandingActionItems},
	}
}

func (d *EpicDetails) wire() wireFields {
	return wireFields{
		SuccessCriteria:        d.SuccessCriteria,
		Objective:              d.Objective,
		AddressedRisks:         d.AddressedRisks,
		PursueRisk:             d.PursueRisk,
		MostRecentUpdate:       d.MostRecentUpdate,
		OutstandingActionItems: d.OutstandingActionItems,
	}
}

// FeatureDetails are the Feature-only fields.
type FeatureDetails struct {
	SuccessCriteria     string
	BusinessDeliverable string
}

func (d *FeatureDetails) Criteria() (string, string) { return LabelSuccessCriteria, d.SuccessCriteria }

func (d *FeatureDetails) PromptFields() []Field {
	return nonEmpty(Field{Label: "Business Deliverable", Value: d.BusinessDeliverable})
}

func (d *FeatureDetails) SummaryFields() []Field {
	return nonEmpty(
		Field{Label: "Business Deliverable", Value: d.BusinessDeliverable},
		Field{Label: LabelSuccessCriteria, Value: d.SuccessCriteria},
	)
}

func (d *FeatureDetails) StorageFields() []Field {
	return []Field{
		{Label: LabelSuccessCriteria, Ref: FieldSuccessCriteria, Value: d.SuccessCriteria},
		{Label: "Business Deliverable", Ref: FieldBusinessDeliverable, Value: d.BusinessDeliverable},
	}
}

func (d *FeatureDetails) wire() wireFields {
	return wireFields{SuccessCriteria: d.SuccessCriteria, BusinessDeliverable: d.BusinessDeliverable}
}

// UserStoryDetails are the User Story-only fields.
type UserStoryDetails struct {
	AcceptanceCriteria string
	Importance         string
}

func (d *UserStoryDetails) Criteria() (string, string) {
	return LabelAcceptanceCriteria, d.AcceptanceCriteria
}

func (d *UserStoryDetails) PromptFields() []Field {
	return nonEmpty(Field{Label: "Importance", Value: d.Importance})
}

func (d *UserStoryDetails) SummaryFields() []Field {
	return nonEmpty(
		Field{Label: LabelAcceptanceCriteria, Value: d.AcceptanceCriteria},
		Field{Label: "Importance", Value: d.Importance},
	)
}

func (d *UserStoryDetails) StorageFields() []Field {
	return []Field{
		{Label: LabelAcceptanceCriteria, Ref: FieldAcceptanceCriteria, Value: d.AcceptanceCriteria},
		{Label: "Importance", Ref: FieldImportance, Value: d.Importance},
	}
}

func (d *UserStoryDetails) wire() wireFields {
	return wireFields{AcceptanceCriteria: d.AcceptanceCriteria, Importance: d.Importance}
}

// BacklogItemDetails are the Product Backlog Item-only fields.
type BacklogItemDetails struct {
	AcceptanceCriteria string
	ReleaseNotes       string
	QANotes            string
}

func (d *BacklogItemDetails) Criteria() (string, string) {
	return LabelAcceptanceCriteria, d.AcceptanceCriteria
}

func (d *BacklogItemDetails) PromptFields() []Field {
	return nonEmpty(
		Field{Label: "Release Notes", Value: d.ReleaseNotes},
		Field{Label: "QA Notes", Value: d.QANotes},
	)
}

func (d *BacklogItemDetails) SummaryFields() []Field {
	return nonEmpty(
		Field{Label: LabelAcceptanceCriteria, Value: d.AcceptanceCriteria},
		Field{Label: "Release Notes", Value: d.ReleaseNotes},
		Field{Label: "QA Notes", Value: d.QANotes},
	)
}

func (d *BacklogItemDetails) StorageFields() []Field {
	return []Field{
		{Label: LabelAcceptanceCriteria, Ref: FieldAcceptanceCriteria, Value: d.AcceptanceCriteria},
		{Label: "Release Notes", Ref: FieldReleaseNotes, Value: d.ReleaseNotes},
		{Label: "QA Notes", Ref: FieldQANotes, Value: d.QANotes},
	}
}

func (d *BacklogItemDetails) wire() wireFields {
	return wireFields{
		AcceptanceCriteria: d.AcceptanceCriteria,
		ReleaseNotes:       d.ReleaseNotes,
		QANotes:            d.QANotes,
	}
}

// TaskDetails carry no extra fields. Used for Tasks and unknown types.
type TaskDetails struct{}

func (d *TaskDetails) Criteria() (string, string) { return "", "" }
func (d *TaskDetails) PromptFields() []Field       { return nil }
func (d *TaskDetails) SummaryFields() []Field      { return nil }
func (d *TaskDetails) StorageFields() []Field      { return nil }
func (d *TaskDetails) wire() wireFields            { return wireFields{} }

// Package prompt builds the system and user prompts sent to the model for
// work item evaluation, decomposition and refinement.
//
// Everything except Resolver is a pure function of its inputs.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// DraftPreviewLength is how much of a draft description is shown in a
// refinement prompt.
const DraftPreviewLength = 150

const none = "None"

// Config configures an Assembler.
type Config struct {
	// Resolver picks the base generation prompt. Nil means call-time prompt
	// or built-in default only.
	Resolver *Resolver
	Logger   *slog.Logger
}

// Assembler renders prompts for a work item.
type Assembler struct {
	resolver *Resolver
	logger   *slog.Logger
}

// New creates an Assembler.
func New(cfg Config) *Assembler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NewResolver(nil, cfg.Logger)
	}
	return &Assembler{resolver: cfg.Resolver, logger: cfg.Logger}
}

// EvaluationSystem returns the system prompt asking the model to judge item.
func (a *Assembler) EvaluationSystem(item models.WorkItem) string {
	return EvaluationSystem(item)
}

// EvaluationUser returns the evaluation user prompt.
func (a *Assembler) EvaluationUser(item models.WorkItem, docs []models.KnowledgeDocument) string {
	return EvaluationUser(item, docs)
}

// GenerationSystem resolves the base prompt for item and appends the output
// rules for its child type.
func (a *Assembler) GenerationSystem(ctx context.Context, item models.WorkItem, callPrompt string) string {
	base, source := a.resolver.Resolve(ctx, item, callPrompt)
	a.logger.Info("resolved generation prompt", "work_item_id", item.ID, "source", source)
	return GenerationSystem(item, base)
}

// GenerationUser returns the decomposition user prompt.
func (a *Assembler) GenerationUser(item models.WorkItem, existing []models.WorkItem, docs []models.KnowledgeDocument) string {
	return GenerationUser(item, existing, docs)
}

// RefinementUser returns the user prompt that asks the model to revise drafts.
func (a *Assembler) RefinementUser(item models.WorkItem, drafts []models.ChildDraft, instructions string, docs []models.KnowledgeDocument) string {
	return RefinementUser(item, drafts, instructions, docs)
}

// EvaluationSystem returns the evaluation system prompt for item's type.
func EvaluationSystem(item models.WorkItem) string {
	noun := string(item.Type)
	if noun == "" {
		noun = "work item"
	}
	return fmt.Sprintf(evaluationSystemTemplate, noun, rubric(item.Type))
}

func rubric(t models.WorkItemType) string {
	switch t {
	case models.WorkItemTypeEpic:
		return epicRubric
	case models.WorkItemTypeFeature:
		return featureRubric
	case models.WorkItemTypeUserStory, models.WorkItemTypeProductBacklogItem:
		return fmt.Sprintf(backlogItemRubric, strings.ToLower(string(t)))
	default:
		return ""
	}
}

// DefaultGenerationPrompt returns the built-in base prompt for decomposing
// item.
func DefaultGenerationPrompt(item models.WorkItem) string {
	switch item.Type {
	case models.WorkItemTypeEpic:
		return epicGenerationPrompt
	case models.WorkItemTypeFeature:
		plural := models.Plural(models.WorkItemTypeUserStory)
		singular := string(models.WorkItemTypeUserStory)
		if item.ProcessTemplate == models.ProcessScrum {
			plural = models.Plural(models.WorkItemTypeProductBacklogItem)
			singular = string(models.WorkItemTypeProductBacklogItem)
		}
		return fmt.Sprintf(featureGenerationPrompt, plural, singular)
	case models.WorkItemTypeUserStory, models.WorkItemTypeProductBacklogItem:
		return fmt.Sprintf(backlogItemGenerationPrompt, item.Type)
	default:
		return genericGenerationPrompt
	}
}

// OutputRules returns the JSON output contract for decomposing item.
func OutputRules(item models.WorkItem) string {
	noun, fields := outputSchema(item)

	var b strings.Builder
	b.WriteString("\n\n**Output Rules**\n")
	b.WriteString("- ONLY return a JSON object with the following structure:\n")
	fmt.Fprintf(&b, "  - \"workItems\": array of %s objects, each with:\n", noun)
	for _, f := range fields {
		fmt.Fprintf(&b, "    - %q: %s\n", f.key, f.desc)
	}
	b.WriteString("- DO NOT output any text outside of the JSON object.")
	return b.String()
}

// GenerationSystem joins base (or the default when base is blank) with the
// output rules.
func GenerationSystem(item models.WorkItem, base string) string {
	if strings.TrimSpace(base) == "" {
		base = DefaultGenerationPrompt(item)
	}
	return base + OutputRules(item)
}

// EvaluationUser renders item, the knowledge previews and the image list.
func EvaluationUser(item models.WorkItem, docs []models.KnowledgeDocument) string {
	var b strings.Builder
	b.WriteString("**Context**\n- Work item:\n")
	b.WriteString("Use this information to understand the scope and expectation for evaluation.\n")
	writeItem(&b, item)

	b.WriteString("\n- Additional contextual knowledge (if any):\n")
	b.WriteString("Extra domain knowledge, system information, or reference material to guide more context-aware and accurate evaluation.\n")
	writeKnowledge(&b, docs)

	b.WriteString("\n- Images (if any):\n")
	b.WriteString("Visual aids or references that provide additional context for evaluation.\n")
	writeImages(&b, item.Images)
	return strings.TrimRight(b.String(), "\n")
}

// GenerationUser renders item, its existing children, images and knowledge
// previews.
func GenerationUser(item models.WorkItem, existing []models.WorkItem, docs []models.KnowledgeDocument) string {
	children := childPlural(item)

	var b strings.Builder
	b.WriteString("**Context**\n- Work item:\n")
	b.WriteString("Use this information to understand the scope and expectation to generate relevant tasks.\n")
	writeItem(&b, item)

	fmt.Fprintf(&b, "\n- Existing %s (if any):\n", children)
	fmt.Fprintf(&b, "Current %[1]s already created for this %[2]s. Avoid duplicating these; generate only missing or supplementary %[1]s for completeness.\n",
		children, item.Type)
	writeExisting(&b, item, existing)

	b.WriteString("\n- Images (if any):\n")
	b.WriteString("Visual aids or references that provide additional context for task generation.\n")
	writeImages(&b, item.Images)

	b.WriteString("\n- Additional contextual knowledge (if any):\n")
	b.WriteString("Extra domain knowledge, system information, or reference material to guide more context-aware and accurate task generation.\n")
	writeKnowledge(&b, docs)
	return strings.TrimRight(b.String(), "\n")
}

// RefinementUser renders the current drafts and the user's instructions.
func RefinementUser(item models.WorkItem, drafts []models.ChildDraft, instructions string, docs []models.KnowledgeDocument) string {
	children := childPlural(item)
	_, criteria := item.Criteria()
	if criteria == "" {
		criteria = none
	}

	var b strings.Builder
	b.WriteString("**Refinement Request**\n\n")
	fmt.Fprintf(&b, "You have previously generated a list of %s for the %s: \"%s\".\n", children, item.Type, item.Title)
	fmt.Fprintf(&b, "Criteria: %s\n\n", criteria)

	b.WriteString("**Current Draft List:**\n")
	entries := make([]string, 0, len(drafts))
	for i, d := range drafts {
		entries = append(entries, fmt.Sprintf("%d. %s\n   Description: %s", i+1, d.Title, DraftPreview(d.Description)))
	}
	if len(entries) == 0 {
		b.WriteString(none)
	}
	b.WriteString(strings.Join(entries, "\n\n"))
	b.WriteString("\n\n")

	b.WriteString("**User Instructions:**\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", strings.TrimSpace(instructions))

	b.WriteString("**Task:**\n")
	fmt.Fprintf(&b, "Update the list of %s based on the User Instructions.\n", children)
	b.WriteString("- If the user asks to add something, add it as a new item.\n")
	b.WriteString("- If the user asks to remove something, remove it.\n")
	b.WriteString("- If the user asks to change details, update the relevant item.\n")
	b.WriteString("- Keep the rest of the list stable unless the instructions imply broader changes.\n")
	b.WriteString("- Ensure all items remain clear, actionable, and appropriately sized.\n\n")
	b.WriteString("Return the COMPLETE updated list of work items in the specified JSON format.")

	if len(docs) > 0 {
		b.WriteString("\n\n**Reference Context:**\n")
		writeKnowledge(&b, docs)
	}
	return strings.TrimRight(b.String(), "\n")
}

func childPlural(item models.WorkItem) string {
	if plural, ok := models.ExpectedChildType(item, true); ok {
		return plural
	}
	return "child work items"
}

func writeItem(b *strings.Builder, item models.WorkItem) {
	fmt.Fprintf(b, "  - Work Item Type: %s\n", item.Type)
	fmt.Fprintf(b, "  - Title: %s\n", item.Title)
	fmt.Fprintf(b, "  - Description: %s\n", item.Description)
	if label, criteria := item.Criteria(); criteria != "" {
		fmt.Fprintf(b, "  - %s: %s\n", label, criteria)
	}
	if item.Details != nil {
		for _, f := range item.Details.PromptFields() {
			fmt.Fprintf(b, "  - %s: %s\n", f.Label, f.Value)
		}
	}
}

func writeKnowledge(b *strings.Builder, docs []models.KnowledgeDocument) {
	if len(docs) == 0 {
		b.WriteString("  " + none + "\n")
		return
	}
	for _, d := range docs {
		fmt.Fprintf(b, "  - %s\n", d.Preview())
	}
}

func writeImages(b *strings.Builder, images []models.Image) {
	if len(images) == 0 {
		b.WriteString("  " + none + "\n")
		return
	}
	for i, img := range images {
		if img.Alt != "" {
			fmt.Fprintf(b, "  %d. %s (%s)\n", i+1, img.URL, img.Alt)
		} else {
			fmt.Fprintf(b, "  %d. %s\n", i+1, img.URL)
		}
	}
}

func writeExisting(b *strings.Builder, parent models.WorkItem, existing []models.WorkItem) {
	if len(existing) == 0 {
		b.WriteString("  " + none + "\n")
		return
	}
	childType, _ := models.ExpectedChildWorkItemType(parent)
	entries := make([]string, 0, len(existing))
	for i, child := range existing {
		var e strings.Builder
		fmt.Fprintf(&e, "  %d. %s", i+1, child.Title)
		for _, f := range summaryFields(childType, child) {
			fmt.Fprintf(&e, "\n     %s: %s", f.Label, fieldPreview(f.Value))
		}
		entries = append(entries, e.String())
	}
	b.WriteString(strings.Join(entries, "\n\n"))
	b.WriteString("\n")
}

// summaryFields lists what is shown for an existing child, chosen by the
// child type the parent expects. Features are summarised by their deliverable
// and success criteria only. An empty childType falls back to the child's own
// type.
func summaryFields(childType models.WorkItemType, child models.WorkItem) []models.Field {
	if childType == "" {
		childType = child.Type
	}
	var fields []models.Field
	if childType != models.WorkItemTypeFeature && child.Description != "" {
		fields = append(fields, models.Field{Label: "Description", Value: child.Description})
	}
	details := child.Details
	if child.Type != childType {
		details = models.ConvertDetails(details, childType)
	}
	if details != nil {
		fields = append(fields, details.SummaryFields()...)
	}
	return fields
}

func fieldPreview(s string) string {
	if t := models.Truncate(s, models.PreviewLength); t != s {
		return t + "..."
	}
	return s
}

var (
	markupPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripMarkup removes HTML tags and collapses whitespace.
func StripMarkup(s string) string {
	s = markupPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// DraftPreview is a draft description with markup removed, cut to
// DraftPreviewLength.
func DraftPreview(description string) string {
	text := StripMarkup(description)
	if t := models.Truncate(text, DraftPreviewLength); t != text {
		return t + "..."
	}
	return text
}

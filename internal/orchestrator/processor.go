// Package orchestrator runs the end-to-end processing of a work item: skip
// already processed items, evaluate readiness, post feedback or decompose
// into children, and record the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/taskgenie/internal/metrics"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Status is the outcome of processing one work item.
type Status string

const (
	StatusDecomposed       Status = "decomposed"
	StatusFeedbackProvided Status = "feedback_provided"
	StatusSkipped          Status = "skipped"
	StatusError            Status = "error"
)

// DefaultTag marks processed work items.
const DefaultTag = "Task Genie"

// Decomposer evaluates and breaks down work items.
type Decomposer interface {
	Evaluate(ctx context.Context, item models.WorkItem) (*models.EvaluationResult, error)
	Generate(ctx context.Context, item models.WorkItem, existing []models.WorkItem, params models.InferenceParams) (*models.GenerationResult, error)
}

// Tracker is the work tracking system.
type Tracker interface {
	ProcessTemplate(ctx context.Context, project string) (models.ProcessTemplate, error)
	FetchChildren(ctx context.Context, parent models.WorkItem) ([]models.WorkItem, error)
	CreateChildren(ctx context.Context, parent models.WorkItem, drafts []models.ChildDraft) ([]models.WorkItem, error)
	AddComment(ctx context.Context, item models.WorkItem, text string) error
	AddTag(ctx context.Context, project string, id int, tag string) error
}

// ResultWriter stores outcome records.
type ResultWriter interface {
	SaveResult(ctx context.Context, r models.ResultRecord) error
}

// Request is one work item to process.
type Request struct {
	WorkItem  models.WorkItem        `json:"workItem"`
	Params    models.InferenceParams `json:"params"`
	SessionID string                 `json:"sessionId,omitempty"`
}

// Outcome describes what processing did.
type Outcome struct {
	ExecutionID string                   `json:"executionId"`
	WorkItemID  int                      `json:"workItemId"`
	Status      Status                   `json:"outcome"`
	Response    string                   `json:"response"`
	Evaluation  *models.EvaluationResult `json:"evaluation,omitempty"`
	Children    []models.WorkItem        `json:"children,omitempty"`
}

// Config holds the processor's collaborators.
type Config struct {
	Engine  Decomposer
	Tracker Tracker
	// Results is optional; outcomes are not recorded when nil.
	Results ResultWriter
	// Metrics is optional.
	Metrics *metrics.Emitter
	// Events is optional.
	Events *EventEmitter
	// Tag is applied to processed parents. Defaults to DefaultTag.
	Tag    string
	Logger *slog.Logger
}

// Processor runs the processing workflow. It holds no per-request state and
// is safe for concurrent use.
type Processor struct {
	engine  Decomposer
	tracker Tracker
	results ResultWriter
	metrics *metrics.Emitter
	events  *EventEmitter
	tag     string
	logger  *slog.Logger
	now     func() time.Time
}

// NewProcessor creates a Processor from cfg.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Engine == nil {
		return nil, errors.New("orchestrator: engine is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("orchestrator: tracker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tag := cfg.Tag
	if tag == "" {
		tag = DefaultTag
	}
	em := cfg.Metrics
	if em == nil {
		em = metrics.NewEmitter(nil, logger)
	}
	return &Processor{
		engine:  cfg.Engine,
		tracker: cfg.Tracker,
		results: cfg.Results,
		metrics: em,
		events:  cfg.Events,
		tag:     tag,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Process handles one request. A non-nil error is always accompanied by an
// Outcome with StatusError.
func (p *Processor) Process(ctx context.Context, req Request) (*Outcome, error) {
	item := req.WorkItem
	if item.Details == nil {
		item.Details = models.NewDetails(item.Type)
	}
	execID := req.SessionID
	if execID == "" {
		execID = uuid.NewString()
	}
	log := p.logger.With("execution_id", execID, "work_item_id", item.ID, "work_item_type", item.Type)
	log.Info("processing work item", "title", item.Title)
	p.emit(Event{Type: EventStarted, ExecutionID: execID, WorkItemID: item.ID})

	if item.HasTag(p.tag) {
		log.Info("work item already processed, skipping", "tag", p.tag)
		return p.finish(ctx, log, execID, item, StatusSkipped,
			fmt.Sprintf("Work item is already tagged %q.", p.tag), nil, nil), nil
	}

	if item.ProcessTemplate == models.ProcessUnknown && item.TeamProject != "" {
		template, err := p.tracker.ProcessTemplate(ctx, item.TeamProject)
		if err != nil {
			log.Warn("could not resolve process template", "project", item.TeamProject, "error", err)
		} else {
			item.ProcessTemplate = template
		}
	}

	eval, err := p.engine.Evaluate(ctx, item)
	if err != nil {
		return p.fail(ctx, log, execID, item, "evaluate", err)
	}
	log.Info("evaluated work item", "pass", eval.Pass, "sources", len(eval.Sources))
	p.emit(Event{Type: EventEvaluated, ExecutionID: execID, WorkItemID: item.ID, Message: fmt.Sprintf("pass=%t", eval.Pass)})

	if !eval.Pass {
		return p.provideFeedback(ctx, log, execID, item, eval)
	}
	return p.decompose(ctx, log, execID, item, eval, req.Params)
}

func (p *Processor) provideFeedback(ctx context.Context, log *slog.Logger, execID string, item models.WorkItem, eval *models.EvaluationResult) (*Outcome, error) {
	if err := p.tracker.AddComment(ctx, item, FeedbackComment(*eval)); err != nil {
		return p.fail(ctx, log, execID, item, "add comment", err)
	}
	if err := p.tracker.AddTag(ctx, item.TeamProject, item.ID, p.tag); err != nil {
		return p.fail(ctx, log, execID, item, "add tag", err)
	}
	p.metrics.IncompleteWorkItem(ctx, item.Type)
	p.emit(Event{Type: EventFeedbackPosted, ExecutionID: execID, WorkItemID: item.ID})

	out := p.finish(ctx, log, execID, item, StatusFeedbackProvided,
		"The work item does not yet meet the readiness criteria; feedback was added as a comment.", eval, nil)
	return out, nil
}

func (p *Processor) decompose(ctx context.Context, log *slog.Logger, execID string, item models.WorkItem, eval *models.EvaluationResult, params models.InferenceParams) (*Outcome, error) {
	existing, err := p.tracker.FetchChildren(ctx, item)
	if err != nil {
		return p.fail(ctx, log, execID, item, "fetch children", err)
	}

	gen, err := p.engine.Generate(ctx, item, existing, params)
	if err != nil {
		return p.fail(ctx, log, execID, item, "generate", err)
	}
	p.emit(Event{Type: EventGenerated, ExecutionID: execID, WorkItemID: item.ID, Count: len(gen.WorkItems)})

	created, err := p.tracker.CreateChildren(ctx, item, gen.WorkItems)
	if err != nil {
		out, ferr := p.fail(ctx, log, execID, item, "create children", err)
		out.Children = created
		return out, ferr
	}
	p.emit(Event{Type: EventChildrenCreated, ExecutionID: execID, WorkItemID: item.ID, Count: len(created)})

	if err := p.tracker.AddTag(ctx, item.TeamProject, item.ID, p.tag); err != nil {
		out, ferr := p.fail(ctx, log, execID, item, "add tag", err)
		out.Children = created
		return out, ferr
	}

	if childType, ok := models.ExpectedChildWorkItemType(item); ok {
		p.metrics.WorkItemsGenerated(ctx, len(created), childType)
	}
	p.metrics.WorkItemUpdated(ctx, item.Type)

	summary := fmt.Sprintf("Created %d new and found %d existing children.", len(created), len(existing))
	return p.finish(ctx, log, execID, item, StatusDecomposed, summary, eval, created), nil
}

// fail records an error outcome and returns it with the wrapped error.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, execID string, item models.WorkItem, step string, err error) (*Outcome, error) {
	wrapped := fmt.Errorf("%s: %w", step, err)
	log.Error("processing failed", "step", step, "error", err)
	out := p.finish(ctx, log, execID, item, StatusError, wrapped.Error(), nil, nil)
	return out, wrapped
}

func (p *Processor) finish(ctx context.Context, log *slog.Logger, execID string, item models.WorkItem, status Status, summary string, eval *models.EvaluationResult, children []models.WorkItem) *Outcome {
	out := &Outcome{
		ExecutionID: execID,
		WorkItemID:  item.ID,
		Status:      status,
		Response:    ResponseMessage(item, status, len(children), summary),
		Evaluation:  eval,
		Children:    children,
	}
	if status != StatusSkipped {
		p.record(ctx, log, item, out)
	}
	log.Info("finished processing", "outcome", status)
	p.emit(Event{Type: EventFinished, ExecutionID: execID, WorkItemID: item.ID, Status: status, Message: out.Response, Count: len(children)})
	return out
}

// record saves the outcome. Storage failures are logged only.
func (p *Processor) record(ctx context.Context, log *slog.Logger, item models.WorkItem, out *Outcome) {
	if p.results == nil {
		return
	}
	if err := p.results.SaveResult(ctx, NewResultRecord(item, out, p.now())); err != nil {
		log.Error("failed to save result", "error", err)
		return
	}
	log.Info("saved result")
}

func (p *Processor) emit(e Event) {
	if p.events == nil {
		return
	}
	e.Timestamp = p.now()
	p.events.Emit(e)
}

// NewResultRecord builds the durable record of an outcome.
func NewResultRecord(item models.WorkItem, out *Outcome, ts time.Time) models.ResultRecord {
	result := models.ExecutionFailed
	if out.Status == StatusDecomposed {
		result = models.ExecutionSucceeded
	}
	r := models.ResultRecord{
		ExecutionID:     out.ExecutionID,
		ExecutionResult: result,
		Timestamp:       ts.UTC(),
		WorkItemID:      item.ID,
		WorkItemStatus:  string(out.Status),
		WorkItemComment: out.Response,
		WorkItem:        models.Summarize(item),
		WorkItemsCount:  len(out.Children),
		ChangedBy:       item.ChangedBy,
		AreaPath:        item.AreaPath,
		IterationPath:   item.IterationPath,
		BusinessUnit:    item.BusinessUnit,
		System:          item.System,
	}
	for _, child := range out.Children {
		r.WorkItemIDs = append(r.WorkItemIDs, child.ID)
		r.WorkItems = append(r.WorkItems, models.Summarize(child))
	}
	return r
}

// ResponseMessage is the human-readable summary of an outcome.
func ResponseMessage(item models.WorkItem, status Status, created int, summary string) string {
	typeName := string(item.Type)
	if typeName == "" {
		typeName = "Work Item"
	}
	subject := fmt.Sprintf("%s #%d %q", typeName, item.ID, item.Title)

	var msg string
	switch status {
	case StatusDecomposed:
		childName := "child work items"
		if child, ok := models.ExpectedChildType(item, true); ok {
			childName = "child " + child
		}
		msg = fmt.Sprintf("Successfully decomposed %s into %d %s.", subject, created, childName)
	case StatusFeedbackProvided:
		msg = fmt.Sprintf("Provided feedback on %s.", subject)
	case StatusSkipped:
		msg = fmt.Sprintf("Skipped %s.", subject)
	default:
		msg = fmt.Sprintf("Error processing %s.", subject)
	}
	if summary = strings.TrimSpace(summary); summary != "" {
		msg += " " + summary
	}
	return msg
}

// FeedbackComment renders an evaluation verdict as a work item comment,
// listing the knowledge sources consulted.
func FeedbackComment(eval models.EvaluationResult) string {
	var b strings.Builder
	b.WriteString(eval.Comment)
	if len(eval.Sources) == 0 {
		return b.String()
	}
	b.WriteString("<br/><br/><b>Sources:</b><ul>")
	for _, s := range eval.Sources {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(s))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// Package decompose evaluates work items for readiness and breaks them down
// into child work items with a language model.
//
// Each call runs retrieval, prompt assembly, content building, invocation and
// parsing in sequence. Knowledge retrieval failures degrade to an empty
// context; every other failure aborts the call without a partial result.
package decompose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ShayCichocki/taskgenie/internal/api"
	"github.com/ShayCichocki/taskgenie/internal/content"
	"github.com/ShayCichocki/taskgenie/internal/knowledge"
	"github.com/ShayCichocki/taskgenie/internal/prompt"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Default output token ceilings.
const (
	DefaultMaxTokens           = 10240
	DefaultEvaluationMaxTokens = 2048
)

// Inference sends one request to the model.
type Inference interface {
	Converse(ctx context.Context, req api.ConverseRequest) (*api.ConverseResponse, error)
}

// Retriever returns knowledge documents for a query. It never fails; errors
// yield no documents.
type Retriever interface {
	Retrieve(ctx context.Context, query string, filter *knowledge.Filter) []models.KnowledgeDocument
}

// ContentBuilder turns a prompt and the item's images into content blocks.
type ContentBuilder interface {
	Build(ctx context.Context, item models.WorkItem, prompt string) []content.Block
}

// Config configures an Engine.
type Config struct {
	Inference Inference
	// Retriever may be nil, in which case no knowledge is used.
	Retriever Retriever
	// Content defaults to a text-only builder.
	Content ContentBuilder
	// Prompts defaults to an assembler without stored overrides.
	Prompts *prompt.Assembler
	// GuidelineAreaPath is the area path of process guideline documents.
	GuidelineAreaPath string
	// MaxTokens is the generation ceiling when the call does not set one.
	MaxTokens           int
	EvaluationMaxTokens int
	Logger              *slog.Logger
}

// Engine runs evaluation and generation. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	inference         Inference
	retriever         Retriever
	content           ContentBuilder
	prompts           *prompt.Assembler
	guidelineAreaPath string
	maxTokens         int
	evalMaxTokens     int
	logger            *slog.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Inference == nil {
		return nil, fmt.Errorf("inference client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Content == nil {
		cfg.Content = content.NewBuilder(content.Config{Logger: cfg.Logger})
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.New(prompt.Config{Logger: cfg.Logger})
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.EvaluationMaxTokens <= 0 {
		cfg.EvaluationMaxTokens = DefaultEvaluationMaxTokens
	}

	return &Engine{
		inference:         cfg.Inference,
		retriever:         cfg.Retriever,
		content:           cfg.Content,
		prompts:           cfg.Prompts,
		guidelineAreaPath: cfg.GuidelineAreaPath,
		maxTokens:         cfg.MaxTokens,
		evalMaxTokens:     cfg.EvaluationMaxTokens,
		logger:            cfg.Logger,
	}, nil
}

// Evaluate judges whether item is defined well enough to be worked on.
func (e *Engine) Evaluate(ctx context.Context, item models.WorkItem) (*models.EvaluationResult, error) {
	log := e.logger.With("operation", "evaluate", "work_item_id", item.ID, "work_item_type", item.Type)

	docs := e.retrieve(ctx, log, knowledge.EvaluationQuery(item), knowledge.EvaluationFilter(item.Type, e.guidelineAreaPath))

	system := e.prompts.EvaluationSystem(item)
	blocks := e.content.Build(ctx, item, e.prompts.EvaluationUser(item, docs))

	temperature := models.DefaultTemperature
	text, err := e.invoke(ctx, log, "evaluate", api.ConverseRequest{
		System:      system,
		Content:     blocks,
		MaxTokens:   e.evalMaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, err
	}

	result, err := ParseEvaluation(text)
	if err != nil {
		log.Error("failed to parse evaluation", "error", err, "response_preview", models.Truncate(text, 200))
		return nil, fmt.Errorf("evaluate work item %d: %w", item.ID, err)
	}
	result.Sources = models.Sources(docs)

	log.Info("evaluated work item", "pass", result.Pass, "sources", len(result.Sources))
	return &result, nil
}

// Generate breaks item down into child drafts. existing lists the children
// already created. When params select refinement, the drafts in params are
// revised according to the instructions instead.
func (e *Engine) Generate(ctx context.Context, item models.WorkItem, existing []models.WorkItem, params models.InferenceParams) (*models.GenerationResult, error) {
	log := e.logger.With("operation", "generate", "work_item_id", item.ID, "work_item_type", item.Type)

	docs := e.retrieve(ctx, log, knowledge.BreakdownQuery(item), knowledge.BreakdownFilter(item))

	system := e.prompts.GenerationSystem(ctx, item, params.Prompt)
	var user string
	if params.IsRefinement() {
		log.Info("refining drafts", "drafts", len(params.GeneratedWorkItems))
		user = e.prompts.RefinementUser(item, params.GeneratedWorkItems, params.RefinementInstructions, docs)
	} else {
		user = e.prompts.GenerationUser(item, existing, docs)
	}
	blocks := e.content.Build(ctx, item, user)

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	temperature, topP := params.Sampling()

	text, err := e.invoke(ctx, log, "generate", api.ConverseRequest{
		System:      system,
		Content:     blocks,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return nil, err
	}

	drafts, err := ParseGeneration(text)
	if err != nil {
		log.Error("failed to parse generation", "error", err, "response_preview", models.Truncate(text, 200))
		return nil, fmt.Errorf("generate work items for %d: %w", item.ID, err)
	}

	validation := ValidateDrafts(drafts, existing)
	for _, w := range validation.Warnings {
		log.Warn("draft warning", "warning", w)
	}
	if !validation.Valid {
		return nil, fmt.Errorf("generate work items for %d: %w: %s", item.ID, ErrInvalidJSON, strings.Join(validation.Errors, "; "))
	}

	log.Info("generated work items", "count", len(drafts), "documents", len(docs))
	return &models.GenerationResult{WorkItems: drafts, Documents: docs}, nil
}

func (e *Engine) retrieve(ctx context.Context, log *slog.Logger, query string, filter *knowledge.Filter) []models.KnowledgeDocument {
	if e.retriever == nil {
		return nil
	}
	docs := e.retriever.Retrieve(ctx, query, filter)
	log.Info("retrieved knowledge", "documents", len(docs), "filter", filter.String())
	return docs
}

func (e *Engine) invoke(ctx context.Context, log *slog.Logger, op string, req api.ConverseRequest) (string, error) {
	resp, err := e.inference.Converse(ctx, req)
	if err != nil {
		return "", &InvocationError{Op: op, Err: err}
	}

	text, err := ResponseText(resp, req.MaxTokens)
	if err != nil {
		log.Error("unusable model response", "error", err)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return text, nil
}

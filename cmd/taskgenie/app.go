package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/taskgenie/internal/ado"
	"github.com/ShayCichocki/taskgenie/internal/api"
	"github.com/ShayCichocki/taskgenie/internal/config"
	"github.com/ShayCichocki/taskgenie/internal/content"
	"github.com/ShayCichocki/taskgenie/internal/decompose"
	"github.com/ShayCichocki/taskgenie/internal/knowledge"
	"github.com/ShayCichocki/taskgenie/internal/metrics"
	"github.com/ShayCichocki/taskgenie/internal/orchestrator"
	"github.com/ShayCichocki/taskgenie/internal/prompt"
	"github.com/ShayCichocki/taskgenie/internal/state"
)

// app holds the collaborators built for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db      *state.DB
	knowDB  *state.DB
	kb      *knowledge.Store
	model   *api.Client
	tracker *ado.Client
}

// newApp opens the local database and builds the clients req asks for.
func newApp(cfg *config.Config, req config.Requirement) (*app, error) {
	if err := cfg.Validate(req); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	a := &app{cfg: cfg, logger: slog.Default()}

	db, err := openDB(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	a.db = db

	a.knowDB = db
	if p := cfg.Knowledge.DBPath; p != "" && p != db.Path() {
		if a.knowDB, err = state.OpenWithDriver(cfg.Storage.Driver, p); err != nil {
			a.Close()
			return nil, fmt.Errorf("open knowledge database: %w", err)
		}
	}
	if a.kb, err = knowledge.NewStore(a.knowDB); err != nil {
		a.Close()
		return nil, err
	}

	if req&config.NeedModel != 0 {
		if a.model, err = newModelClient(cfg, a.logger); err != nil {
			a.Close()
			return nil, err
		}
	}
	// The tracker is optional for commands that do not need it, but images
	// and existing children are used whenever it is configured.
	if req&config.NeedTracker != 0 || cfg.Validate(config.NeedTracker) == nil {
		if a.tracker, err = newTrackerClient(cfg, a.logger); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// openDB opens and migrates the core database.
func openDB(driver, path string) (*state.DB, error) {
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.OpenWithDriver(driver, path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return db, nil
}

func newModelClient(cfg *config.Config, logger *slog.Logger) (*api.Client, error) {
	var key string
	if !cfg.Bedrock.Enabled {
		var err error
		if key, err = config.GetAPIKey(cfg); err != nil {
			return nil, err
		}
	}
	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        key,
		BaseURL:       cfg.Anthropic.BaseURL,
		UseAWSBedrock: cfg.Bedrock.Enabled,
		AWSRegion:     cfg.Bedrock.Region,
		AWSProfile:    cfg.Bedrock.Profile,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	return client, nil
}

func newTrackerClient(cfg *config.Config, logger *slog.Logger) (*ado.Client, error) {
	client, err := ado.NewClient(ado.Config{
		Organization: cfg.ADO.Organization,
		BaseURL:      cfg.ADO.BaseURL,
		Token:        cfg.ADO.Token,
		PAT:          cfg.ADO.PAT,
		Tag:          cfg.ADO.Tag,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create Azure DevOps client: %w", err)
	}
	return client, nil
}

// engine builds the decomposition engine. Images are fetched through the
// tracker when one is configured.
func (a *app) engine() (*decompose.Engine, error) {
	if a.model == nil {
		return nil, errors.New("model client not configured")
	}
	var fetcher content.ImageFetcher
	if a.tracker != nil {
		fetcher = a.tracker
	}
	return decompose.New(decompose.Config{
		Inference: a.model,
		Retriever: knowledge.NewRetriever(knowledge.RetrieverConfig{
			Searcher:     a.kb,
			MaxDocuments: a.cfg.Knowledge.MaxDocuments,
			Logger:       a.logger,
		}),
		Content: content.NewBuilder(content.Config{
			Fetcher:        fetcher,
			MaxImages:      a.cfg.Images.MaxImages,
			MaxImageSizeMB: a.cfg.Images.MaxSizeMB,
			Logger:         a.logger,
		}),
		Prompts: prompt.New(prompt.Config{
			Resolver: prompt.NewResolver(state.NewPromptStore(a.db), a.logger),
			Logger:   a.logger,
		}),
		GuidelineAreaPath:   a.cfg.Knowledge.GuidelineAreaPath,
		MaxTokens:           a.cfg.Inference.MaxTokens,
		EvaluationMaxTokens: a.cfg.Inference.EvaluationMaxTokens,
		Logger:              a.logger,
	})
}

// processor builds the end-to-end workflow. events may be nil.
func (a *app) processor(events *orchestrator.EventEmitter) (*orchestrator.Processor, error) {
	eng, err := a.engine()
	if err != nil {
		return nil, err
	}
	if a.tracker == nil {
		return nil, errors.New("Azure DevOps client not configured")
	}
	return orchestrator.NewProcessor(orchestrator.Config{
		Engine:  eng,
		Tracker: a.tracker,
		Results: state.NewResultStore(a.db),
		Metrics: metrics.NewEmitter(state.NewMetricStore(a.db), a.logger),
		Events:  events,
		Tag:     a.cfg.ADO.Tag,
		Logger:  a.logger,
	})
}

// Close releases the databases.
func (a *app) Close() {
	if a.knowDB != nil && a.knowDB != a.db {
		a.knowDB.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// logUsage reports the model usage of the invocation.
func (a *app) logUsage() {
	if a.model == nil {
		return
	}
	t := a.model.Tracker()
	in, out := t.Total()
	if t.Calls() == 0 {
		return
	}
	a.logger.Info("model usage",
		"calls", t.Calls(),
		"input_tokens", in,
		"output_tokens", out,
		"truncated", t.Truncated(),
		"estimated_cost_usd", fmt.Sprintf("%.4f", t.Cost()))
}

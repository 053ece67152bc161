package state

import (
	"context"
	"io"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// ResultWriter records processing outcomes.
type ResultWriter interface {
	SaveResult(ctx context.Context, r models.ResultRecord) error
}

// ResultReader reads processing outcomes back.
type ResultReader interface {
	GetResult(ctx context.Context, executionID string) (*models.ResultRecord, error)
	ListResults(ctx context.Context, limit int) ([]models.ResultRecord, error)
}

// PromptLookup resolves prompt overrides by work item context key.
type PromptLookup interface {
	LookupPrompt(ctx context.Context, key string) (string, bool, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store is the database handle seen by the CLI.
type Store interface {
	io.Closer
	Migrator
}

// Compile-time verification of the concrete stores.
var (
	_ Store        = (*DB)(nil)
	_ ResultWriter = (*ResultStore)(nil)
	_ ResultReader = (*ResultStore)(nil)
	_ PromptLookup = (*PromptStore)(nil)
)

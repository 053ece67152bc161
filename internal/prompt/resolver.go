package prompt

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Source records where a base generation prompt came from.
type Source string

const (
	SourceRequest Source = "request"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// Lookup finds a stored prompt override by config key.
type Lookup interface {
	LookupPrompt(ctx context.Context, key string) (string, bool, error)
}

// Resolver picks the base generation prompt. A call-time prompt wins over a
// stored override, which wins over the built-in default.
type Resolver struct {
	lookup Lookup
	logger *slog.Logger
}

// NewResolver creates a Resolver. lookup may be nil.
func NewResolver(lookup Lookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns the base prompt for item and its source. Lookup failures
// are logged and fall through to the default.
func (r *Resolver) Resolve(ctx context.Context, item models.WorkItem, callPrompt string) (string, Source) {
	if strings.TrimSpace(callPrompt) != "" {
		return callPrompt, SourceRequest
	}

	if r.lookup != nil {
		key := item.ConfigKey()
		stored, ok, err := r.lookup.LookupPrompt(ctx, key)
		switch {
		case err != nil:
			r.logger.Warn("prompt override lookup failed", "key", key, "error", err)
		case ok && strings.TrimSpace(stored) != "":
			return stored, SourceConfig
		}
	}

	return DefaultGenerationPrompt(item), SourceDefault
}

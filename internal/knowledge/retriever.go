// Package knowledge retrieves reference documents that ground model prompts,
// and provides the SQLite full-text knowledge base that serves them.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// DefaultMaxDocuments is the number of documents requested per retrieval.
const DefaultMaxDocuments = 3

// SearchResult is a raw hit from a Searcher.
type SearchResult struct {
	Content   string
	SourceURI string
	Score     float64
}

// Searcher runs a relevance search. Results are ordered most relevant first.
type Searcher interface {
	Search(ctx context.Context, query string, filter *Filter, topK int) ([]SearchResult, error)
}

// RetrieverConfig configures a Retriever.
type RetrieverConfig struct {
	Searcher Searcher
	// MaxDocuments is the top-k passed to the searcher. Zero means
	// DefaultMaxDocuments.
	MaxDocuments int
	Logger       *slog.Logger
}

// Retriever adapts a Searcher into knowledge documents. It never fails: a
// search error is logged and yields no documents.
type Retriever struct {
	searcher     Searcher
	maxDocuments int
	logger       *slog.Logger
}

// NewRetriever creates a Retriever. A nil Searcher always returns no
// documents.
func NewRetriever(cfg RetrieverConfig) *Retriever {
	r := &Retriever{
		searcher:     cfg.Searcher,
		maxDocuments: cfg.MaxDocuments,
		logger:       cfg.Logger,
	}
	if r.maxDocuments <= 0 {
		r.maxDocuments = DefaultMaxDocuments
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Retrieve returns the documents matching query and filter, in the order the
// searcher ranked them.
func (r *Retriever) Retrieve(ctx context.Context, query string, filter *Filter) []models.KnowledgeDocument {
	if r.searcher == nil {
		return nil
	}

	r.logger.Debug("retrieving knowledge context",
		"filter", filter.String(),
		"max_results", r.maxDocuments,
	)

	results, err := r.searcher.Search(ctx, query, filter, r.maxDocuments)
	if err != nil {
		r.logger.Warn("failed to retrieve knowledge context", "error", err)
		return nil
	}
	r.logger.Info(fmt.Sprintf("retrieved %d knowledge documents", len(results)))

	docs := make([]models.KnowledgeDocument, 0, len(results))
	for i, res := range results {
		source := res.SourceURI
		if source == "" {
			source = fmt.Sprintf("Document %d", i+1)
		}
		docs = append(docs, models.KnowledgeDocument{
			Content:       res.Content,
			ContentLength: len(res.Content),
			Source:        source,
			Score:         res.Score,
		})
		r.logger.Debug(fmt.Sprintf("processed knowledge chunk %d", i+1),
			"source", source,
			"content_length", len(res.Content),
			"score", res.Score,
		)
	}
	return docs
}

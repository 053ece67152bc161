package models

// PreviewLength is the number of characters of a knowledge document embedded
// into a prompt.
const PreviewLength = 500

// KnowledgeDocument is a document returned by knowledge retrieval. It is
// read-only once created.
type KnowledgeDocument struct {
	// Content is the document text.
	Content string `json:"content"`
	// ContentLength is the length of Content in characters.
	ContentLength int `json:"contentLength"`
	// Source is the source URI, or "Document N" when the store had none.
	Source string `json:"source"`
	// Score is the relevance score. Higher is more relevant.
	Score float64 `json:"score"`
}

// Preview returns the first PreviewLength characters of the content followed
// by "...".
func (d KnowledgeDocument) Preview() string {
	return Truncate(d.Content, PreviewLength) + "..."
}

// Truncate returns at most n characters (runes) of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Sources returns the source of every document, in order.
func Sources(docs []KnowledgeDocument) []string {
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, d.Source)
	}
	return sources
}

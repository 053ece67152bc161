package knowledge

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_]*`)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "this": true, "to": true, "was": true,
	"will": true, "with": true, "not": true, "but": true, "you": true,
	"your": true, "can": true, "do": true, "does": true, "did": true,
	"should": true, "would": true, "could": true, "may": true, "might": true,
	"must": true, "shall": true, "need": true, "if": true, "then": true,
	"else": true, "when": true, "where": true, "which": true, "who": true,
	"what": true, "how": true, "why": true, "all": true, "any": true,
	"each": true, "more": true, "most": true, "other": true, "some": true,
	"such": true, "no": true, "only": true, "so": true, "than": true,
	"too": true, "very": true, "just": true, "also": true, "etc": true,
	"none": true, "following": true, "find": true, "relevant": true,
	"information": true, "help": true, "title": true, "description": true,
	"criteria": true,
}

// extractKeywords returns the unique lowercase keywords of text, in first
// occurrence order, dropping stop words, words shorter than three letters and
// anything that looks like markup.
func extractKeywords(text string) []string {
	if text == "" {
		return nil
	}
	text = markupPattern.ReplaceAllString(text, " ")

	seen := make(map[string]bool)
	var keywords []string
	for _, word := range wordPattern.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if len(lower) < 3 || stopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		keywords = append(keywords, lower)
	}
	return keywords
}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

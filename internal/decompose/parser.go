package decompose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/taskgenie/internal/api"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// ExtractJSON parses the substring between the first '{' and the last '}' of
// text. It returns nil when there are no braces, they are out of order, or the
// substring is not a JSON object.
func ExtractJSON(text string) map[string]json.RawMessage {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil
	}
	return obj
}

// ResponseText returns the text of the first content item of resp, enforcing
// the output token ceiling.
func ResponseText(resp *api.ConverseResponse, maxTokens int) (string, error) {
	if resp == nil || len(resp.Content) == 0 {
		return "", ErrInvalidResponse
	}
	if maxTokens > 0 && resp.Usage.OutputTokens >= int64(maxTokens) {
		return "", fmt.Errorf("%w (%d output tokens, max %d)", ErrTokenLimit, resp.Usage.OutputTokens, maxTokens)
	}
	text := resp.Content[0].Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ParseEvaluation decodes {"pass": bool, "comment": string}. A failing verdict
// must carry a comment.
func ParseEvaluation(text string) (models.EvaluationResult, error) {
	obj := ExtractJSON(text)
	if obj == nil {
		return models.EvaluationResult{}, ErrInvalidJSON
	}

	rawPass, ok := obj["pass"]
	if !ok {
		return models.EvaluationResult{}, &MissingKeyError{Key: "pass"}
	}
	var result models.EvaluationResult
	if err := json.Unmarshal(rawPass, &result.Pass); err != nil {
		return models.EvaluationResult{}, fmt.Errorf("%w: pass is not a boolean", ErrInvalidJSON)
	}

	if rawComment, ok := obj["comment"]; ok {
		// A non-string comment is kept as its JSON text.
		if err := json.Unmarshal(rawComment, &result.Comment); err != nil {
			result.Comment = string(rawComment)
		}
	}
	if !result.Pass && strings.TrimSpace(result.Comment) == "" {
		return models.EvaluationResult{}, &MissingKeyError{Key: "comment"}
	}
	return result, nil
}

// ParseGeneration decodes {"workItems": [...]} into drafts, preserving order.
func ParseGeneration(text string) ([]models.ChildDraft, error) {
	obj := ExtractJSON(text)
	if obj == nil {
		return nil, ErrInvalidJSON
	}

	raw, ok := obj["workItems"]
	if !ok {
		return nil, &MissingKeyError{Key: "workItems"}
	}

	var items []json.RawMessage
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return nil, fmt.Errorf("%w: workItems is not an array", ErrInvalidJSON)
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: workItems is not an array", ErrInvalidJSON)
	}

	drafts := make([]models.ChildDraft, 0, len(items))
	for i, item := range items {
		var d models.ChildDraft
		if err := json.Unmarshal(item, &d); err != nil {
			return nil, fmt.Errorf("%w: workItems[%d]: %v", ErrInvalidJSON, i, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

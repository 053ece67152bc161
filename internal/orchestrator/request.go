package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// ErrNoWorkItem is returned when a request carries no work item.
var ErrNoWorkItem = errors.New("request has no work item")

// wireRequest accepts both camelCase and snake_case keys.
type wireRequest struct {
	WorkItem      json.RawMessage        `json:"workItem"`
	WorkItemSnake json.RawMessage        `json:"work_item"`
	Params        models.InferenceParams `json:"params"`
	SessionID     string                 `json:"sessionId"`
	SessionSnake  string                 `json:"session_id"`
}

// ParseRequest decodes a processing request. The payload may be wrapped in a
// "body" field, either as an object or as a JSON-encoded string.
func ParseRequest(data []byte) (*Request, error) {
	var envelope struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if body := bytes.TrimSpace(envelope.Body); len(body) > 0 && !bytes.Equal(body, []byte("null")) {
		data = body
		if body[0] == '"' {
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, fmt.Errorf("decode request body: %w", err)
			}
			data = []byte(s)
		}
	}

	var raw wireRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	item := raw.WorkItem
	if isEmptyJSON(item) {
		item = raw.WorkItemSnake
	}
	if isEmptyJSON(item) {
		return nil, ErrNoWorkItem
	}

	req := &Request{Params: raw.Params, SessionID: raw.SessionID}
	if req.SessionID == "" {
		req.SessionID = raw.SessionSnake
	}
	if err := json.Unmarshal(item, &req.WorkItem); err != nil {
		return nil, fmt.Errorf("decode work item: %w", err)
	}
	return req, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  int
		session string
		wantErr error
	}{
		{"flat camel", `{"workItem": {"workItemId": 1, "workItemType": "Epic"}, "sessionId": "a"}`, 1, "a", nil},
		{"flat snake", `{"work_item": {"workItemId": 2, "workItemType": "Epic"}, "session_id": "b"}`, 2, "b", nil},
		{"body object", `{"body": {"workItem": {"workItemId": 3, "workItemType": "Epic"}, "sessionId": "c"}}`, 3, "c", nil},
		{"body string", `{"body": "{\"workItem\": {\"workItemId\": 4, \"workItemType\": \"Epic\"}}"}`, 4, "", nil},
		{"camel wins", `{"workItem": {"workItemId": 5}, "work_item": {"workItemId": 6}}`, 5, "", nil},
		{"null work item falls back", `{"workItem": null, "work_item": {"workItemId": 7}}`, 7, "", nil},
		{"no work item", `{"params": {}}`, 0, "", ErrNoWorkItem},
		{"null body", `{"body": null, "workItem": {"workItemId": 8}}`, 8, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if req.WorkItem.ID != tt.wantID || req.SessionID != tt.session {
				t.Errorf("req = id %d session %q, want %d %q", req.WorkItem.ID, req.SessionID, tt.wantID, tt.session)
			}
			if req.WorkItem.Details == nil {
				t.Error("Details should be populated")
			}
		})
	}

	if _, err := ParseRequest([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseRequest_Params(t *testing.T) {
	req, err := ParseRequest([]byte(`{"workItem": {"workItemId": 1, "workItemType": "User Story", "acceptanceCriteria": "ok"},
		"params": {"topP": 0.9, "maxTokens": 4096, "refinementInstructions": "merge 1 and 2",
			"generatedWorkItems": [{"title": "1. a"}, {"title": "2. b"}]}}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Params.TopP == nil || *req.Params.TopP != 0.9 || req.Params.MaxTokens != 4096 {
		t.Errorf("params = %+v", req.Params)
	}
	if !req.Params.IsRefinement() {
		t.Error("expected refinement params")
	}
	if _, criteria := req.WorkItem.Criteria(); criteria != "ok" {
		t.Errorf("criteria = %q", criteria)
	}
}

func TestParseRequest_WrappingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.IntRange(1, 1<<30).Draw(rt, "id")
		title := rapid.StringMatching(`[ -~]{0,30}`).Draw(rt, "title")
		session := rapid.StringMatching(`[a-z0-9-]{0,12}`).Draw(rt, "session")
		snake := rapid.Bool().Draw(rt, "snake")
		wrap := rapid.IntRange(0, 2).Draw(rt, "wrap")

		item := models.NewWorkItem(models.WorkItemTypeEpic)
		item.ID = id
		item.Title = title
		itemKey, sessionKey := "workItem", "sessionId"
		if snake {
			itemKey, sessionKey = "work_item", "session_id"
		}
		inner, err := json.Marshal(map[string]any{itemKey: item, sessionKey: session})
		if err != nil {
			rt.Fatalf("marshal: %v", err)
		}

		var payload []byte
		switch wrap {
		case 0:
			payload = inner
		case 1:
			payload = []byte(fmt.Sprintf(`{"body": %s}`, inner))
		default:
			quoted, _ := json.Marshal(string(inner))
			payload = []byte(fmt.Sprintf(`{"body": %s}`, quoted))
		}

		req, err := ParseRequest(payload)
		if err != nil {
			rt.Fatalf("ParseRequest(%s): %v", payload, err)
		}
		if req.WorkItem.ID != id || req.WorkItem.Title != title || req.SessionID != session {
			rt.Fatalf("got %d %q %q, want %d %q %q", req.WorkItem.ID, req.WorkItem.Title, req.SessionID, id, title, session)
		}
	})
}

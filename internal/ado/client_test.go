package ado

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordedRequest is one request seen by a test server.
type recordedRequest struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Auth        string
	Body        []byte
}

// recorder is an http.Handler that logs requests and delegates the reply.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	reply    func(w http.ResponseWriter, r *http.Request, body []byte)
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
		Auth:        r.Header.Get("Authorization"),
		Body:        body,
	})
	rec.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	rec.reply(w, r, body)
}

func (rec *recorder) all() []recordedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedRequest(nil), rec.requests...)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantErr  bool
		wantBase string
		wantAuth string
	}{
		{name: "organization", cfg: Config{Organization: "contoso", Token: "t"},
			wantBase: "https://contoso.visualstudio.com", wantAuth: "Bearer t"},
		{name: "base url trailing slash", cfg: Config{BaseURL: "https://dev.example.com/", Token: "t"},
			wantBase: "https://dev.example.com", wantAuth: "Bearer t"},
		{name: "pat", cfg: Config{Organization: "contoso", PAT: "secret"},
			wantBase: "https://contoso.visualstudio.com", wantAuth: "Basic OnNlY3JldA=="},
		{name: "no location", cfg: Config{Token: "t"}, wantErr: true},
		{name: "no auth", cfg: Config{Organization: "contoso"}, wantErr: true},
		{name: "both auth", cfg: Config{Organization: "contoso", Token: "t", PAT: "p"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			if c.baseURL != tt.wantBase {
				t.Errorf("baseURL = %q, want %q", c.baseURL, tt.wantBase)
			}
			if c.authHeader != tt.wantAuth {
				t.Errorf("authHeader = %q, want %q", c.authHeader, tt.wantAuth)
			}
			if c.Tag() != DefaultTag {
				t.Errorf("Tag() = %q, want %q", c.Tag(), DefaultTag)
			}
		})
	}
}

func TestFetchWorkItem(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`{
			"id": 42, "rev": 7,
			"fields": {
				"System.WorkItemType": "User Story",
				"System.TeamProject": "Payments",
				"System.Title": "Checkout",
				"System.Description": "<p>Pay</p><img src=\"https://contoso.visualstudio.com/a.png\" alt=\"mock\">",
				"System.State": "New",
				"System.AreaPath": "Payments\\Web",
				"System.IterationPath": "Payments\\Sprint 1",
				"System.Tags": "ui; Task Genie",
				"System.ChangedBy": {"displayName": "Dana Lee", "uniqueName": "dana@example.com"},
				"Microsoft.VSTS.Common.AcceptanceCriteria": "<ul><li>works</li></ul>",
				"Custom.Importance": "High",
				"Custom.BusinessUnit": "Retail",
				"Custom.System": "Storefront"
			}
		}`))
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	item, err := newTestClient(t, server).FetchWorkItem(context.Background(), "Payments", 42)
	if err != nil {
		t.Fatalf("FetchWorkItem: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 1 || reqs[0].Method != http.MethodGet || reqs[0].Path != "/Payments/_apis/wit/workItems/42" {
		t.Fatalf("requests = %+v", reqs)
	}
	if reqs[0].Auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", reqs[0].Auth)
	}

	if item.ID != 42 || item.Rev != 7 || item.Type != models.WorkItemTypeUserStory || item.Title != "Checkout" {
		t.Errorf("item = %+v", item)
	}
	if item.ChangedBy != "Dana Lee" {
		t.Errorf("ChangedBy = %q, want display name", item.ChangedBy)
	}
	if !item.HasTag("task genie") || len(item.Tags) != 2 {
		t.Errorf("Tags = %v", item.Tags)
	}
	if _, criteria := item.Criteria(); criteria != "<ul><li>works</li></ul>" {
		t.Errorf("criteria = %q", criteria)
	}
	if d, ok := item.Details.(*models.UserStoryDetails); !ok || d.Importance != "High" {
		t.Errorf("Details = %#v", item.Details)
	}
	if item.BusinessUnit != "Retail" || item.System != "Storefront" {
		t.Errorf("organisation tags = %q/%q", item.BusinessUnit, item.System)
	}
	if len(item.Images) != 1 || item.Images[0].Alt != "mock" {
		t.Errorf("Images = %+v", item.Images)
	}
}

func TestFetchWorkItem_NotFound(t *testing.T) {
	server := httptest.NewServer(&recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"TF401232: Work item 9 does not exist"}`))
	}})
	defer server.Close()

	_, err := newTestClient(t, server).FetchWorkItem(context.Background(), "Payments", 9)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !strings.Contains(apiErr.Body, "TF401232") {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestFetchChildren(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"id": 10, "relations": [
				{"rel": "System.LinkTypes.Hierarchy-Forward", "url": "https://x/_apis/wit/workItems/11"},
				{"rel": "System.LinkTypes.Hierarchy-Reverse", "url": "https://x/_apis/wit/workItems/1"},
				{"rel": "System.LinkTypes.Hierarchy-Forward", "url": "https://x/_apis/wit/workItems/12"},
				{"rel": "System.LinkTypes.Hierarchy-Forward", "url": "https://x/_apis/wit/workItems/13"}
			]}`))
		case r.Method == http.MethodPost:
			w.Write([]byte(`{"count": 3, "value": [
				{"id": 11, "fields": {"System.WorkItemType": "User Story", "System.Title": "Open story", "System.State": "Active",
					"Microsoft.VSTS.Common.AcceptanceCriteria": "done"}},
				{"id": 12, "fields": {"System.WorkItemType": "User Story", "System.Title": "Old story", "System.State": "Closed"}},
				{"id": 13, "fields": {"System.WorkItemType": "Bug", "System.Title": "Stray bug", "System.State": "New",
					"Microsoft.VSTS.Common.AcceptanceCriteria": "no crash", "Custom.Importance": "High"}}
			]}`))
		}
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	parent := models.NewWorkItem(models.WorkItemTypeFeature)
	parent.ID = 10
	parent.TeamProject = "Payments"
	parent.ProcessTemplate = models.ProcessAgile

	children, err := newTestClient(t, server).FetchChildren(context.Background(), parent)
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}
	if len(children) != 2 || children[0].ID != 11 || children[1].ID != 13 {
		t.Fatalf("children = %+v", children)
	}
	if children[0].ProcessTemplate != models.ProcessAgile || children[0].TeamProject != "Payments" {
		t.Errorf("child context not inherited: %+v", children[0])
	}
	if _, criteria := children[0].Criteria(); criteria != "done" {
		t.Errorf("child criteria = %q", criteria)
	}
	if children[1].Type != "Bug" {
		t.Errorf("unexpected child type should be kept, got %q", children[1].Type)
	}
	story, ok := children[1].Details.(*models.UserStoryDetails)
	if !ok {
		t.Fatalf("unexpected child details = %T, want the expected child type's details", children[1].Details)
	}
	if story.AcceptanceCriteria != "no crash" || story.Importance != "High" {
		t.Errorf("unexpected child details = %+v", story)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if !strings.Contains(reqs[0].Query, "$expand=relations") {
		t.Errorf("relations query = %q", reqs[0].Query)
	}
	if reqs[1].Path != "/Payments/_apis/wit/workitemsbatch" {
		t.Errorf("batch path = %q", reqs[1].Path)
	}
	var batch batchRequest
	if err := json.Unmarshal(reqs[1].Body, &batch); err != nil {
		t.Fatalf("batch body: %v", err)
	}
	if len(batch.IDs) != 3 || batch.IDs[0] != 11 || batch.IDs[2] != 13 {
		t.Errorf("batch ids = %v", batch.IDs)
	}
	if !containsString(batch.Fields, models.FieldAcceptanceCriteria) {
		t.Errorf("batch fields missing acceptance criteria: %v", batch.Fields)
	}
}

func TestFetchChildren_NoRelationsOrID(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`{"id": 10}`))
	}}
	server := httptest.NewServer(rec)
	defer server.Close()
	client := newTestClient(t, server)

	parent := models.NewWorkItem(models.WorkItemTypeUserStory)
	parent.TeamProject = "Payments"
	children, err := client.FetchChildren(context.Background(), parent)
	if err != nil || children == nil || len(children) != 0 {
		t.Fatalf("zero id: children = %v, err = %v", children, err)
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("zero id made %d requests", n)
	}

	parent.ID = 10
	children, err = client.FetchChildren(context.Background(), parent)
	if err != nil || len(children) != 0 {
		t.Fatalf("no relations: children = %v, err = %v", children, err)
	}
	if n := len(rec.all()); n != 1 {
		t.Errorf("no relations made %d requests, want 1", n)
	}
}

func TestCreateChildren(t *testing.T) {
	nextID := 100
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		switch r.Method {
		case http.MethodPost:
			nextID++
			json.NewEncoder(w).Encode(map[string]any{"id": nextID, "rev": 1})
		case http.MethodPatch:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	parent := models.NewWorkItem(models.WorkItemTypeFeature)
	parent.ID = 10
	parent.TeamProject = "Payments"
	parent.ProcessTemplate = models.ProcessAgile
	parent.AreaPath = `Payments\Web`
	parent.IterationPath = `Payments\Sprint 1`
	parent.BusinessUnit = "Retail"
	parent.System = "Storefront"
	parent.ValueArea = "Care"

	drafts := []models.ChildDraft{
		{Title: "1. Pay by card", Description: "<p>card</p>", AcceptanceCriteria: "charged", Importance: "High"},
		{Title: "2. Pay by wallet", Description: "<p>wallet</p>"},
	}

	created, err := newTestClient(t, server).CreateChildren(context.Background(), parent, drafts)
	if err != nil {
		t.Fatalf("CreateChildren: %v", err)
	}
	if len(created) != 2 || created[0].ID != 101 || created[1].ID != 102 {
		t.Fatalf("created = %+v", created)
	}
	if created[0].Type != models.WorkItemTypeUserStory || created[0].AreaPath != parent.AreaPath {
		t.Errorf("created[0] = %+v", created[0])
	}

	reqs := rec.all()
	if len(reqs) != 4 {
		t.Fatalf("requests = %d, want create+link per draft", len(reqs))
	}
	create := reqs[0]
	if create.Path != "/Payments/_apis/wit/workitems/$User Story" {
		t.Errorf("create path = %q", create.Path)
	}
	if create.ContentType != contentTypeJSONPatch {
		t.Errorf("create content type = %q", create.ContentType)
	}
	var ops []patchOp
	if err := json.Unmarshal(create.Body, &ops); err != nil {
		t.Fatalf("create body: %v", err)
	}
	values := map[string]any{}
	for _, op := range ops {
		if op.Op != "add" {
			t.Errorf("op = %q, want add", op.Op)
		}
		values[op.Path] = op.Value
	}
	for path, want := range map[string]string{
		"/fields/System.Title":                              "1. Pay by card",
		"/fields/System.AreaPath":                           `Payments\Web`,
		"/fields/System.IterationPath":                      `Payments\Sprint 1`,
		"/fields/System.WorkItemType":                       "User Story",
		"/fields/System.Tags":                               DefaultTag,
		"/fields/Microsoft.VSTS.Common.AcceptanceCriteria": "charged",
		"/fields/Custom.Importance":                         "High",
		"/fields/Custom.BusinessUnit":                       "Retail",
		"/fields/Custom.AMAValueArea":                       "Care",
	} {
		if values[path] != want {
			t.Errorf("%s = %v, want %q", path, values[path], want)
		}
	}

	link := reqs[1]
	if link.Method != http.MethodPatch || link.Path != "/Payments/_apis/wit/workitems/10" {
		t.Errorf("link request = %s %s", link.Method, link.Path)
	}
	var linkOps []struct {
		Path  string `json:"path"`
		Value struct {
			Rel string `json:"rel"`
			URL string `json:"url"`
		} `json:"value"`
	}
	if err := json.Unmarshal(link.Body, &linkOps); err != nil || len(linkOps) != 1 {
		t.Fatalf("link body = %s (%v)", link.Body, err)
	}
	if linkOps[0].Path != "/relations/-" || linkOps[0].Value.Rel != hierarchyForward ||
		linkOps[0].Value.URL != server.URL+"/Payments/_apis/wit/workItems/101" {
		t.Errorf("link op = %+v", linkOps[0])
	}
}

func TestCreateChildren_TaskFieldsAndFailure(t *testing.T) {
	calls := 0
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		if r.Method != http.MethodPost {
			return
		}
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"bad field"}`))
			return
		}
		w.Write([]byte(`{"id": 500}`))
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	parent := models.NewWorkItem(models.WorkItemTypeUserStory)
	parent.ID = 10
	parent.TeamProject = "Payments"
	drafts := []models.ChildDraft{{Title: "1. a"}, {Title: "2. b"}, {Title: "3. c"}}

	created, err := newTestClient(t, server).CreateChildren(context.Background(), parent, drafts)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400 APIError", err)
	}
	if len(created) != 1 || created[0].ID != 500 || created[0].Type != models.WorkItemTypeTask {
		t.Errorf("created before failure = %+v", created)
	}

	var ops []patchOp
	if err := json.Unmarshal(rec.all()[0].Body, &ops); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if len(ops) != 6 {
		t.Errorf("task create ops = %d, want base fields only", len(ops))
	}
}

func TestAddCommentAndTag(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`{}`))
	}}
	server := httptest.NewServer(rec)
	defer server.Close()
	client := newTestClient(t, server)

	item := models.NewWorkItem(models.WorkItemTypeEpic)
	item.ID = 5
	item.TeamProject = "Payments"
	item.ChangedBy = "Editor"
	item.OriginalChangedBy = "Author"

	if err := client.AddComment(context.Background(), item, "<p>Add success criteria</p>"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if err := client.AddTag(context.Background(), "Payments", 5, "Task Genie"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}

	reqs := rec.all()
	comment := reqs[0]
	if comment.Method != http.MethodPost || comment.Path != "/Payments/_apis/wit/workItems/5/comments" ||
		!strings.Contains(comment.Query, "api-version=7.1-preview.4") {
		t.Errorf("comment request = %s %s?%s", comment.Method, comment.Path, comment.Query)
	}
	var body map[string]string
	if err := json.Unmarshal(comment.Body, &body); err != nil {
		t.Fatalf("comment body: %v", err)
	}
	if !strings.Contains(body["text"], "@Author</a> <p>Add success criteria</p>") {
		t.Errorf("comment text = %q", body["text"])
	}

	tag := reqs[1]
	if tag.Method != http.MethodPatch || tag.ContentType != contentTypeJSONPatch {
		t.Errorf("tag request = %s %s", tag.Method, tag.ContentType)
	}
	if !strings.Contains(string(tag.Body), `"path":"/fields/System.Tags"`) {
		t.Errorf("tag body = %s", tag.Body)
	}
}

func TestProcessTemplate(t *testing.T) {
	rec := &recorder{reply: func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`{"name": "Payments", "capabilities": {"processTemplate": {"templateName": "Microsoft Visual Studio Scrum 2.0"}}}`))
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	got, err := newTestClient(t, server).ProcessTemplate(context.Background(), "Payments Team")
	if err != nil {
		t.Fatalf("ProcessTemplate: %v", err)
	}
	if got != models.ProcessScrum {
		t.Errorf("ProcessTemplate = %q, want Scrum", got)
	}
	req := rec.all()[0]
	if req.Path != "/_apis/projects/Payments Team" || !strings.Contains(req.Query, "includeCapabilities=true") {
		t.Errorf("request = %s?%s", req.Path, req.Query)
	}
}

func TestFetchImage(t *testing.T) {
	var trackerQuery, trackerAuth, externalAgent, externalAuth string
	tracker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trackerQuery = r.URL.RawQuery
		trackerAuth = r.Header.Get("Authorization")
		w.Write([]byte("tracker-bytes"))
	}))
	defer tracker.Close()
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		externalAgent = r.Header.Get("User-Agent")
		externalAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("external-bytes"))
	}))
	defer external.Close()

	client := newTestClient(t, tracker)
	ctx := context.Background()

	data, err := client.FetchImage(ctx, tracker.URL+"/_apis/wit/attachments/abc?fileName=a.png")
	if err != nil || string(data) != "tracker-bytes" {
		t.Fatalf("tracker image = %q, %v", data, err)
	}
	if trackerAuth != "Bearer test-token" {
		t.Errorf("tracker Authorization = %q", trackerAuth)
	}
	if !strings.Contains(trackerQuery, "fileName=a.png&download=true&api-version=7.1") {
		t.Errorf("tracker query = %q", trackerQuery)
	}

	data, err = client.FetchImage(ctx, external.URL+"/a.png")
	if err != nil || string(data) != "external-bytes" {
		t.Fatalf("external image = %q, %v", data, err)
	}
	if externalAgent != imageUserAgent || externalAuth != "" {
		t.Errorf("external headers: agent %q auth %q", externalAgent, externalAuth)
	}

	if _, err := client.FetchImage(ctx, external.URL+"/missing.png"); !IsNotFound(err) {
		t.Errorf("missing image err = %v", err)
	}
}

func TestExtractImages(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []models.Image
	}{
		{"none", "<p>text</p>", nil},
		{"src and alt", `<img src="https://x/a.png" alt="Login">`, []models.Image{{URL: "https://x/a.png", Alt: "Login"}}},
		{"alt first single quotes", `<IMG alt='b' src='https://x/b.png'/>`, []models.Image{{URL: "https://x/b.png", Alt: "b"}}},
		{"missing src", `<img alt="nothing">`, nil},
		{"order kept", `<img src="1.png"><p/><img src="2.png">`, []models.Image{{URL: "1.png"}, {URL: "2.png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImages(tt.html)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractImages() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("image %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

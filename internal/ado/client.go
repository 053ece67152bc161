// Package ado is a minimal Azure DevOps REST client covering the work item
// operations the decomposition workflow needs.
package ado

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// apiVersion is the REST API version sent with every request.
const apiVersion = "7.1"

// commentsAPIVersion is required by the work item comments endpoint.
const commentsAPIVersion = "7.1-preview.4"

// DefaultTag marks work items the workflow has processed.
const DefaultTag = "Task Genie"

const (
	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
)

// Config holds configuration for creating a Client.
//
// Exactly one of Token and PAT must be set.
type Config struct {
	// Organization is the Azure DevOps organization name.
	Organization string
	// BaseURL overrides https://{Organization}.visualstudio.com.
	BaseURL string
	// Token is a bearer access token.
	Token string
	// PAT is a personal access token, sent with basic auth.
	PAT string
	// Tag is added to created children and processed parents. Defaults to
	// DefaultTag.
	Tag string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one Azure DevOps organization. It is safe for concurrent
// use.
type Client struct {
	baseURL    string
	authHeader string
	tag        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if cfg.Organization == "" {
			return nil, fmt.Errorf("ado: organization or base URL is required")
		}
		baseURL = fmt.Sprintf("https://%s.visualstudio.com", cfg.Organization)
	}

	var authHeader string
	switch {
	case cfg.Token != "" && cfg.PAT != "":
		return nil, fmt.Errorf("ado: cannot configure both token and PAT")
	case cfg.Token != "":
		authHeader = "Bearer " + cfg.Token
	case cfg.PAT != "":
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+cfg.PAT))
	default:
		return nil, fmt.Errorf("ado: no authentication configured (set token or PAT)")
	}

	tag := cfg.Tag
	if tag == "" {
		tag = DefaultTag
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		authHeader: authHeader,
		tag:        tag,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Tag returns the tag the client applies to processed work items.
func (c *Client) Tag() string {
	return c.tag
}

// do sends an authenticated request to path (relative to the base URL) and,
// when result is non-nil, decodes the JSON response into it. Non-2xx
// responses return an *APIError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body, result any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ado: encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ado: creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ado: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ado: reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
	}
	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("ado: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// patchOp is one JSON-patch operation.
type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func addField(ref string, value any) patchOp {
	return patchOp{Op: "add", Path: "/fields/" + ref, Value: value}
}

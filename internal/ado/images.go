package ado

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const imageUserAgent = "TaskGenie/1.0"

// isTrackerURL reports whether an image is hosted by the tracking system and
// needs the client's credentials.
func (c *Client) isTrackerURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, c.baseURL) ||
		strings.Contains(rawURL, "visualstudio.com") ||
		strings.Contains(rawURL, "azure.com")
}

// FetchImage downloads an image referenced by a work item. Attachments hosted
// by the tracking system are fetched with the client's credentials.
func (c *Client) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	tracker := c.isTrackerURL(rawURL)
	if tracker {
		sep := "&"
		if !strings.Contains(rawURL, "?") {
			sep = "?"
		}
		rawURL += sep + "download=true&api-version=" + apiVersion
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ado: creating image request: %w", err)
	}
	if tracker {
		req.Header.Set("Authorization", c.authHeader)
	} else {
		req.Header.Set("User-Agent", imageUserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ado: fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ado: reading image: %w", err)
	}
	return data, nil
}

package api

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/taskgenie/internal/content"
)

// ConverseRequest is a single-turn model request: a system prompt and one
// user message made of content blocks.
type ConverseRequest struct {
	System    string
	Content   []content.Block
	MaxTokens int
	// Exactly one of Temperature and TopP should be set. Temperature wins
	// when both are.
	Temperature *float64
	TopP        *float64
}

// ContentItem is one block of the model's reply.
type ContentItem struct {
	Type string
	Text string
}

// Usage is the token usage reported for a call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// ConverseResponse is the model's reply.
type ConverseResponse struct {
	Content    []ContentItem
	StopReason string
	Usage      Usage
}

// Converse sends req to the model and returns its reply. Usage is added to
// the client's tracker.
func (c *Client) Converse(ctx context.Context, req ConverseRequest) (*ConverseResponse, error) {
	if req.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", req.MaxTokens)
	}

	blocks, stats := toBlockParams(req.Content)
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(req.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	sampling := "default"
	switch {
	case req.Temperature != nil:
		params.Temperature = anthropic.Float(*req.Temperature)
		sampling = fmt.Sprintf("temperature=%g", *req.Temperature)
	case req.TopP != nil:
		params.TopP = anthropic.Float(*req.TopP)
		sampling = fmt.Sprintf("top_p=%g", *req.TopP)
	}

	c.logger.Info("invoking model",
		"model", c.model,
		"content_items", len(req.Content),
		"text_length", stats.textLength,
		"images", stats.images,
		"image_kb", stats.imageBytes/1024,
		"max_tokens", req.MaxTokens,
		"sampling", sampling,
	)

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages API: %w", err)
	}

	usage := Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	c.tracker.Record(usage, string(resp.StopReason))
	c.logger.Info("model usage",
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)

	out := &ConverseResponse{StopReason: string(resp.StopReason), Usage: usage}
	for _, block := range resp.Content {
		out.Content = append(out.Content, ContentItem{Type: block.Type, Text: block.Text})
	}
	return out, nil
}

type blockStats struct {
	textLength int
	images     int
	imageBytes int
}

func toBlockParams(blocks []content.Block) ([]anthropic.ContentBlockParamUnion, blockStats) {
	var stats blockStats
	params := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case content.BlockImage:
			params = append(params, anthropic.NewImageBlockBase64(b.MediaType(), base64.StdEncoding.EncodeToString(b.Data)))
			stats.images++
			stats.imageBytes += len(b.Data)
		default:
			params = append(params, anthropic.NewTextBlock(b.Text))
			stats.textLength += len(b.Text)
		}
	}
	return params, stats
}

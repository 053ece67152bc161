// Package content builds the multi-modal input sent to the model: one text
// block followed by the work item's images, within count and size budgets.
package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Defaults for the per-request image budget.
const (
	DefaultMaxImages      = 3
	DefaultMaxImageSizeMB = 5.0
)

const bytesPerMB = 1024 * 1024

// BlockType identifies the kind of a content block.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// Block is a single piece of model input.
type Block struct {
	Type BlockType
	// Text is set for text blocks.
	Text string
	// Format and Data are set for image blocks. Format is one of jpeg, png,
	// webp or gif.
	Format string
	Data   []byte
}

// MediaType returns the MIME type of an image block.
func (b Block) MediaType() string {
	return "image/" + b.Format
}

// TextBlock returns a text block.
func TextBlock(s string) Block {
	return Block{Type: BlockText, Text: s}
}

// ImageFetcher retrieves image bytes by URL. A nil payload with a nil error
// means the image is unavailable.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Config configures a Builder.
type Config struct {
	Fetcher ImageFetcher
	// MaxImages caps the images considered per request. Zero means
	// DefaultMaxImages.
	MaxImages int
	// MaxImageSizeMB caps the size of an accepted image. Zero means
	// DefaultMaxImageSizeMB.
	MaxImageSizeMB float64
	Logger         *slog.Logger
}

// Builder assembles content blocks. It is safe for concurrent use.
type Builder struct {
	fetcher   ImageFetcher
	maxImages int
	maxSizeMB float64
	logger    *slog.Logger
}

// NewBuilder creates a Builder. A nil Fetcher disables images.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{
		fetcher:   cfg.Fetcher,
		maxImages: cfg.MaxImages,
		maxSizeMB: cfg.MaxImageSizeMB,
		logger:    cfg.Logger,
	}
	if b.maxImages <= 0 {
		b.maxImages = DefaultMaxImages
	}
	if b.maxSizeMB <= 0 {
		b.maxSizeMB = DefaultMaxImageSizeMB
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build returns the text prompt followed by up to MaxImages accepted images of
// item. Images that fail to fetch, come back empty or exceed the size limit are
// skipped; Build itself never fails because of an image.
func (b *Builder) Build(ctx context.Context, item models.WorkItem, prompt string) []Block {
	blocks := []Block{TextBlock(prompt)}
	if len(item.Images) == 0 || b.fetcher == nil {
		return blocks
	}

	candidates := item.Images
	if len(candidates) > b.maxImages {
		candidates = candidates[:b.maxImages]
	}

	for i, img := range candidates {
		data, err := b.fetcher.FetchImage(ctx, img.URL)
		if err != nil {
			b.logger.Warn("failed to process image", "url", img.URL, "error", err)
			continue
		}
		if data == nil {
			b.logger.Warn("image unavailable", "url", img.URL)
			continue
		}
		if !b.sizeOK(data) {
			continue
		}

		format := DetectFormat(data)
		blocks = append(blocks, Block{Type: BlockImage, Format: format, Data: data})
		b.logger.Debug(fmt.Sprintf("added image (%d of %d) to model input", i+1, len(candidates)),
			"url", img.URL,
			"format", format,
			"size_kb", len(data)/1024,
		)
	}

	if len(item.Images) > b.maxImages {
		b.logger.Info("limited images for model input",
			"total", len(item.Images),
			"processed", b.maxImages,
		)
	}

	return blocks
}

func (b *Builder) sizeOK(data []byte) bool {
	sizeMB := float64(len(data)) / bytesPerMB
	if sizeMB > b.maxSizeMB {
		b.logger.Warn("image exceeds size limit",
			"actual_mb", fmt.Sprintf("%.2f", sizeMB),
			"limit_mb", b.maxSizeMB,
		)
		return false
	}
	return true
}

// Stats summarises blocks for logging.
type Stats struct {
	Blocks     int
	TextLength int
	Images     int
	ImagesKB   int
}

// Summarize computes Stats over blocks.
func Summarize(blocks []Block) Stats {
	s := Stats{Blocks: len(blocks)}
	for _, b := range blocks {
		switch b.Type {
		case BlockText:
			s.TextLength += len(b.Text)
		case BlockImage:
			s.Images++
			s.ImagesKB += len(b.Data) / 1024
		}
	}
	return s
}

package knowledge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// frontMatter is the optional YAML header of an imported document.
type frontMatter struct {
	Source   string            `yaml:"source"`
	Metadata map[string]string `yaml:"metadata"`
}

var frontMatterDelim = []byte("---")

// importable reports whether path has an extension the importer reads.
func importable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	default:
		return false
	}
}

// ParseDocument builds a Document from file contents. An optional YAML front
// matter block delimited by "---" lines may set source and metadata; metadata
// in the file overrides defaults. Without a source the document is attributed
// to fallbackSource.
func ParseDocument(data []byte, fallbackSource string, defaults map[string]string) (Document, error) {
	doc := Document{SourceURI: fallbackSource, Metadata: make(map[string]string)}
	for k, v := range defaults {
		doc.Metadata[k] = v
	}

	body := data
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, frontMatterDelim) {
		rest := trimmed[len(frontMatterDelim):]
		end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
		if end < 0 {
			return Document{}, errors.New("unterminated front matter")
		}
		var fm frontMatter
		if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
			return Document{}, fmt.Errorf("parse front matter: %w", err)
		}
		if fm.Source != "" {
			doc.SourceURI = fm.Source
		}
		for k, v := range fm.Metadata {
			doc.Metadata[k] = v
		}
		body = rest[end+1+len(frontMatterDelim):]
	}

	doc.Content = strings.TrimSpace(string(body))
	return doc, nil
}

// ImportFile reads one file into the store and returns the document ID.
func (s *Store) ImportFile(ctx context.Context, path string, defaults map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	doc, err := ParseDocument(data, "file://"+filepath.ToSlash(abs), defaults)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if doc.Content == "" {
		return "", fmt.Errorf("%s: document is empty", path)
	}
	return s.Add(ctx, doc)
}

// ImportDir imports every markdown or text file under dir and returns how
// many documents were stored.
func (s *Store) ImportDir(ctx context.Context, dir string, defaults map[string]string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !importable(path) {
			return nil
		}
		if _, err := s.ImportFile(ctx, path, defaults); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("import %s: %w", dir, err)
	}
	return count, nil
}

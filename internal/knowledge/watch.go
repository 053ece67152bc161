package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/taskgenie/internal/state"
)

// WatchEvent reports a change applied to the knowledge base.
type WatchEvent struct {
	Path    string
	ID      string
	Removed bool
	Err     error
}

// Watch keeps the store in sync with the files under dir until ctx is
// cancelled. Created or modified files are re-imported and removed files are
// deleted. Each applied change is passed to onEvent when it is non-nil.
func (s *Store) Watch(ctx context.Context, dir string, defaults map[string]string, logger *slog.Logger, onEvent func(WatchEvent)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify is not recursive, so every directory is added.
	ids := make(map[string]string)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if importable(path) {
			if abs, id, err := fileDocumentID(path, defaults); err == nil {
				ids[abs] = id
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	emit := func(ev WatchEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !importable(event.Name) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				abs = event.Name
			}

			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				id, known := ids[abs]
				if !known {
					continue
				}
				delete(ids, abs)
				err := s.Delete(ctx, id)
				if errors.Is(err, state.ErrNotFound) {
					err = nil
				}
				if err != nil {
					logger.Warn("failed to remove knowledge document", "path", abs, "error", err)
				} else {
					logger.Info("removed knowledge document", "path", abs)
				}
				emit(WatchEvent{Path: abs, ID: id, Removed: true, Err: err})

			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				id, err := s.ImportFile(ctx, abs, defaults)
				if err != nil {
					logger.Warn("failed to import knowledge document", "path", abs, "error", err)
				} else {
					ids[abs] = id
					logger.Info("imported knowledge document", "path", abs, "id", id)
				}
				emit(WatchEvent{Path: abs, ID: id, Err: err})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// fileDocumentID returns the absolute path of a file and the ID its document
// is stored under.
func fileDocumentID(path string, defaults map[string]string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", err
	}
	doc, err := ParseDocument(data, "file://"+filepath.ToSlash(abs), defaults)
	if err != nil {
		return "", "", err
	}
	return abs, DocumentID(doc.SourceURI), nil
}

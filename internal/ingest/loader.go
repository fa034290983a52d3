package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/telltale-labs/fathom/pkg/model"
)

// DefaultExtensions lists the file suffixes loaded when none are configured.
var DefaultExtensions = []string{".txt", ".md"}

// Loader walks a directory tree and chunks every matching file.
type Loader struct {
	chunker    *Chunker
	extensions map[string]struct{}
}

// NewLoader creates a loader that ingests files with the given suffixes.
// A nil or empty extension list falls back to DefaultExtensions.
func NewLoader(chunker *Chunker, extensions []string) *Loader {
	if chunker == nil {
		chunker = NewChunker()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &Loader{chunker: chunker, extensions: exts}
}

// LoadDir walks root and returns chunks for every matching file. The
// document ID is the path relative to root. Hidden directories are skipped.
func (l *Loader) LoadDir(ctx context.Context, root string) ([]*model.Chunk, error) {
	var chunks []*model.Chunk

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := l.extensions[ext]; !ok {
			return nil
		}

		fileChunks, err := l.LoadFile(path, root)
		if err != nil {
			return err
		}
		chunks = append(chunks, fileChunks...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	slog.Debug("documents_loaded", "root", root, "chunks", len(chunks))
	return chunks, nil
}

// LoadFile reads and chunks a single file. The document ID is the path
// relative to root when path is under it, otherwise the path itself.
func (l *Loader) LoadFile(path, root string) ([]*model.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	docID := path
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		docID = filepath.ToSlash(rel)
	}

	meta := model.Metadata{
		"path": model.String(docID),
		"ext":  model.String(strings.ToLower(filepath.Ext(path))),
	}
	return l.chunker.Chunk(docID, string(data), meta), nil
}

// Package localfs implements the store capabilities on the local
// filesystem: folders are directories, record collections are XLSX
// workbooks. It lets the whole batch run end-to-end without Google access.
package localfs

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/tallyops/invoice-ingest/internal/store"
)

// FileStore treats directory paths as folder ids and file paths as file
// ids. Move renames the file into the destination directory; the id of a
// moved file changes, which is fine because ids are only handed out by
// List and Create.
type FileStore struct {
	logger *slog.Logger
}

func NewFileStore(logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{logger: logger}
}

func (s *FileStore) List(_ context.Context, folderID string) ([]store.File, error) {
	entries, err := os.ReadDir(folderID)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	var files []store.File
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(folderID, e.Name())
		files = append(files, store.File{
			ID:   path,
			Name: e.Name(),
			MIME: mime.TypeByExtension(filepath.Ext(e.Name())),
		})
	}
	return files, nil
}

func (s *FileStore) GetBytes(_ context.Context, id string) ([]byte, error) {
	b, err := os.ReadFile(id)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", id, err)
	}
	return b, nil
}

func (s *FileStore) GetMetadata(_ context.Context, id string) (store.File, error) {
	if _, err := os.Stat(id); err != nil {
		return store.File{}, fmt.Errorf("stat file %s: %w", id, err)
	}
	abs, err := filepath.Abs(id)
	if err != nil {
		abs = id
	}
	return store.File{ID: id, Name: filepath.Base(id), Link: "file://" + abs}, nil
}

func (s *FileStore) Move(_ context.Context, id, _, toFolder string) error {
	if err := os.MkdirAll(toFolder, 0o755); err != nil {
		return fmt.Errorf("ensure folder %s: %w", toFolder, err)
	}
	dst := filepath.Join(toFolder, filepath.Base(id))
	if err := os.Rename(id, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", id, toFolder, err)
	}
	s.logger.Debug("localfs.move.ok", "from", id, "to", dst)
	return nil
}

func (s *FileStore) Create(_ context.Context, name, parentFolder string, content []byte) (store.File, error) {
	if err := os.MkdirAll(parentFolder, 0o755); err != nil {
		return store.File{}, fmt.Errorf("ensure folder %s: %w", parentFolder, err)
	}
	path := filepath.Join(parentFolder, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return store.File{}, fmt.Errorf("write %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return store.File{ID: path, Name: name, Link: "file://" + abs}, nil
}

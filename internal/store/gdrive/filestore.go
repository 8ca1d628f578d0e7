// Package gdrive implements store.FileStore on Google Drive.
package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/tallyops/invoice-ingest/internal/store"
)

type FileStore struct {
	svc    *drive.Service
	logger *slog.Logger
}

// NewFileStore builds a Drive-backed FileStore from an authenticated HTTP
// client.
func NewFileStore(ctx context.Context, client *http.Client, logger *slog.Logger) (*FileStore, error) {
	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{svc: svc, logger: logger}, nil
}

func (s *FileStore) List(ctx context.Context, folderID string) ([]store.File, error) {
	resp, err := s.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Spaces("drive").
		Fields("files(id, name, mimeType)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	files := make([]store.File, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, store.File{ID: f.Id, Name: f.Name, MIME: f.MimeType})
	}
	s.logger.Debug("drive.list.ok", "folder_id", folderID, "count", len(files))
	return files, nil
}

func (s *FileStore) GetBytes(ctx context.Context, id string) ([]byte, error) {
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", id, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn("drive.download.close_error", "file_id", id, "error", cerr)
		}
	}()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", id, err)
	}
	return b, nil
}

func (s *FileStore) GetMetadata(ctx context.Context, id string) (store.File, error) {
	f, err := s.svc.Files.Get(id).Fields("name, webViewLink").Context(ctx).Do()
	if err != nil {
		return store.File{}, fmt.Errorf("get metadata %s: %w", id, err)
	}
	return store.File{ID: id, Name: f.Name, Link: f.WebViewLink}, nil
}

func (s *FileStore) Move(ctx context.Context, id, fromFolder, toFolder string) error {
	_, err := s.svc.Files.Update(id, nil).
		AddParents(toFolder).
		RemoveParents(fromFolder).
		Fields("id, parents").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("move file %s to %s: %w", id, toFolder, err)
	}
	s.logger.Debug("drive.move.ok", "file_id", id, "from", fromFolder, "to", toFolder)
	return nil
}

func (s *FileStore) Create(ctx context.Context, name, parentFolder string, content []byte) (store.File, error) {
	meta := &drive.File{Name: name, Parents: []string{parentFolder}}
	f, err := s.svc.Files.Create(meta).
		Media(bytes.NewReader(content)).
		Fields("id, name, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return store.File{}, fmt.Errorf("create file %q: %w", name, err)
	}
	return store.File{ID: f.Id, Name: f.Name, Link: f.WebViewLink}, nil
}

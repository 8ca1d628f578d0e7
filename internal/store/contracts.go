// Package store defines the file-store and record-store capabilities the
// pipeline runs against, plus their Drive/Sheets and local implementations.
package store

import "context"

// File describes one file held by a FileStore. Link is a shareable view
// URL (or file:// path for the local store).
type File struct {
	ID   string
	Name string
	MIME string
	Link string
}

// FileStore lists, fetches and relocates files between logical folders.
type FileStore interface {
	// List returns the files directly under folderID.
	List(ctx context.Context, folderID string) ([]File, error)
	// GetBytes returns the full binary content of a file.
	GetBytes(ctx context.Context, id string) ([]byte, error)
	// GetMetadata returns name and shareable link for a file.
	GetMetadata(ctx context.Context, id string) (File, error)
	// Move re-parents a file from one folder to another.
	Move(ctx context.Context, id, fromFolder, toFolder string) error
	// Create deposits content as a new file under parentFolder.
	Create(ctx context.Context, name, parentFolder string, content []byte) (File, error)
}

// RecordStore appends rows to record collections. AppendRows returns the
// number of cells written so callers can detect partial failure.
type RecordStore interface {
	AppendRows(ctx context.Context, collectionID, a1Range string, rows [][]any) (int, error)
	CreateCollection(ctx context.Context, title, sheetTitle string) (string, error)
}

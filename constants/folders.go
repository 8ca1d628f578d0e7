package constants

// FolderState is the logical bucket a source file currently occupies.
type FolderState string

// Stable values (these exact strings go into the ledger).
const (
	FolderUnprocessed FolderState = "UNPROCESSED"
	FolderProcessed   FolderState = "PROCESSED"
	FolderFailed      FolderState = "FAILED"
	FolderOutput      FolderState = "OUTPUT"
)

// SourceTag records which intake path a file arrived through.
type SourceTag string

const (
	SourceEmail  SourceTag = "email"
	SourceUpload SourceTag = "upload"
)

// DefaultSourceTag is used when a file's origin folder is not in the
// configured folder map.
const DefaultSourceTag = SourceUpload

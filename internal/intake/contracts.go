// Package intake discovers unconsumed mail attachments and deposits them
// into the shared unprocessed folder the pipeline reads from.
package intake

import "context"

// AttachmentRef points at one attachment part of a message.
type AttachmentRef struct {
	ID       string
	Filename string
}

// Message is one source message with attachments.
type Message struct {
	ID          string
	Sender      string
	Subject     string
	Attachments []AttachmentRef
}

// MailSource is the mailbox capability: list unconsumed messages, fetch
// attachment bytes, and mark a message consumed exactly once.
type MailSource interface {
	// EnsureProcessedMarker creates the durable "processed" marker if it
	// does not exist yet.
	EnsureProcessedMarker(ctx context.Context) error
	// ListUnprocessed returns messages that have attachments and are not
	// yet marked processed.
	ListUnprocessed(ctx context.Context) ([]Message, error)
	// GetAttachment returns the decoded binary payload of one attachment.
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	// MarkProcessed marks a message consumed.
	MarkProcessed(ctx context.Context, messageID string) error
}

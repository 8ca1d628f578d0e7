package intake

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUser      = "me"
	processedLabel = "processed"
	pendingQuery   = "has:attachment -label:" + processedLabel
)

// GmailSource implements MailSource on the Gmail API.
type GmailSource struct {
	svc     *gmail.Service
	labelID string
	logger  *slog.Logger
}

func NewGmailSource(ctx context.Context, client *http.Client, logger *slog.Logger) (*GmailSource, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GmailSource{svc: svc, logger: logger}, nil
}

func (g *GmailSource) EnsureProcessedMarker(ctx context.Context) error {
	resp, err := g.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list labels: %w", err)
	}
	for _, l := range resp.Labels {
		if l.Name == processedLabel {
			g.labelID = l.Id
			return nil
		}
	}
	created, err := g.svc.Users.Labels.Create(gmailUser, &gmail.Label{
		Name:                  processedLabel,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create label %q: %w", processedLabel, err)
	}
	g.labelID = created.Id
	g.logger.Info("intake.label.created", "label_id", created.Id)
	return nil
}

func (g *GmailSource) ListUnprocessed(ctx context.Context) ([]Message, error) {
	resp, err := g.svc.Users.Messages.List(gmailUser).Q(pendingQuery).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var msgs []Message
	for _, m := range resp.Messages {
		full, err := g.svc.Users.Messages.Get(gmailUser, m.Id).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", m.Id, err)
		}
		msg := Message{ID: m.Id, Sender: "Unknown Sender", Subject: "No Subject"}
		if full.Payload != nil {
			for _, h := range full.Payload.Headers {
				switch h.Name {
				case "Subject":
					msg.Subject = h.Value
				case "From":
					msg.Sender = h.Value
				}
			}
			for _, part := range full.Payload.Parts {
				if part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
					continue
				}
				msg.Attachments = append(msg.Attachments, AttachmentRef{
					ID:       part.Body.AttachmentId,
					Filename: part.Filename,
				})
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (g *GmailSource) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := g.svc.Users.Messages.Attachments.Get(gmailUser, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	data, err := base64.URLEncoding.DecodeString(att.Data)
	if err != nil {
		// Gmail omits padding on some payloads.
		data, err = base64.RawURLEncoding.DecodeString(att.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}
	return data, nil
}

func (g *GmailSource) MarkProcessed(ctx context.Context, messageID string) error {
	if g.labelID == "" {
		return fmt.Errorf("processed label not ensured")
	}
	_, err := g.svc.Users.Messages.Modify(gmailUser, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{g.labelID},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("label message %s: %w", messageID, err)
	}
	return nil
}

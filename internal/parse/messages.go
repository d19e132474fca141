package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skolegrid/aula-bridge/internal/model"
)

// ThreadMeta is the slim thread listing used to decide which threads to
// open. Unread state lives here; the platform repeats it nowhere else.
type ThreadMeta struct {
	ID      string
	Subject string
	Unread  bool
}

// Threads normalizes the thread listing, most recent first as delivered.
func Threads(payload json.RawMessage) ([]ThreadMeta, Warnings, error) {
	var doc struct {
		Threads []struct {
			ID      flexID `json:"id"`
			Subject string `json:"subject"`
			Read    *bool  `json:"read"`
		} `json:"threads"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode threads payload: %w", err)
	}

	var warnings Warnings
	metas := make([]ThreadMeta, 0, len(doc.Threads))
	for _, t := range doc.Threads {
		if t.ID == "" {
			warnings.Addf("messages", "skipped thread without id")
			continue
		}
		// A missing read flag means unknown; treat as read so it can
		// never inflate the unread count.
		unread := t.Read != nil && !*t.Read
		metas = append(metas, ThreadMeta{ID: t.ID.String(), Subject: t.Subject, Unread: unread})
	}
	return metas, warnings, nil
}

// ThreadMessage normalizes the newest proper message of one thread. Service
// messages (join/leave notices) are skipped. Returns ok=false when the
// thread holds no renderable message.
func ThreadMessage(payload json.RawMessage, meta ThreadMeta, loc *time.Location) (model.Message, Warnings, bool) {
	var doc struct {
		Subject  string `json:"subject"`
		Messages []struct {
			ID           flexID          `json:"id"`
			SendDateTime string          `json:"sendDateTime"`
			MessageType  string          `json:"messageType"`
			Text         json.RawMessage `json:"text"`
			Sender       *struct {
				FullName string `json:"fullName"`
			} `json:"sender"`
		} `json:"messages"`
	}

	var warnings Warnings
	if err := json.Unmarshal(payload, &doc); err != nil {
		warnings.Addf("messages", "thread %s payload unreadable: %v", meta.ID, err)
		return model.Message{}, warnings, false
	}

	subject := doc.Subject
	if subject == "" {
		subject = meta.Subject
	}

	for _, m := range doc.Messages {
		if m.MessageType != "Message" {
			continue
		}
		msg := model.Message{
			ID:       m.ID.String(),
			ThreadID: meta.ID,
			Subject:  subject,
			Unread:   meta.Unread,
			Excerpt:  excerpt(htmlToText(messageText(m.Text))),
		}
		if m.Sender != nil {
			msg.Sender = m.Sender.FullName
		}
		if sent, err := parseStamp(m.SendDateTime, loc); err == nil {
			msg.SentAt = sent
		} else {
			warnings.Addf("messages", "thread %s: %v", meta.ID, err)
		}
		return msg, warnings, true
	}
	return model.Message{}, warnings, false
}

// SensitiveMessage builds the placeholder for a MitID-gated thread.
func SensitiveMessage(meta ThreadMeta) model.Message {
	return model.Message{
		ThreadID:      meta.ID,
		Subject:       "Følsom besked",
		Sender:        "Ukendt afsender",
		Unread:        meta.Unread,
		Excerpt:       "Log ind på Aula med MitID for at læse denne besked.",
		RequiresMitID: true,
	}
}

// messageText tolerates the platform sending text as either a plain string
// or an {html: "..."} object.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.HTML
	}
	return ""
}

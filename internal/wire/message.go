// Package wire decodes chat messages as the backends actually send them. The
// websocket frames and the REST history share it.
package wire

import (
	"encoding/json"
	"time"

	"github.com/cwrk-planet/chatsync/internal/domain"
)

// Message tolerates the field spellings seen from different backend versions.
type Message struct {
	ID                string              `json:"id"`
	GroupID           string              `json:"groupID"`
	SenderID          string              `json:"senderID"`
	SenderDisplayName string              `json:"senderDisplayName"`
	SenderUsername    string              `json:"senderUsername"`
	SenderAvatar      string              `json:"senderAvatar"`
	Content           string              `json:"content"`
	EncryptedContent  string              `json:"encryptedContent"`
	Timestamp         Time                `json:"timestamp"`
	Reactions         map[string][]string `json:"reactions"`
	ReplyToMessageID  string              `json:"replyToMessageID"`
	ClientMessageID   string              `json:"clientMessageID"`
}

// Text is the displayable body, plain or encrypted.
func (w Message) Text() string {
	if w.Content != "" {
		return w.Content
	}
	return w.EncryptedContent
}

func (w Message) Domain() domain.Message {
	name := w.SenderDisplayName
	if name == "" {
		name = w.SenderUsername
	}
	return domain.Message{
		ID:                w.ID,
		SenderID:          w.SenderID,
		SenderDisplayName: name,
		SenderAvatar:      w.SenderAvatar,
		Content:           w.Text(),
		Timestamp:         time.Time(w.Timestamp),
		Reactions:         w.Reactions,
		ReplyToMessageID:  w.ReplyToMessageID,
		ClientMessageID:   w.ClientMessageID,
	}
}

// Messages converts a decoded batch, keeping order.
func Messages(in []Message) []domain.Message {
	if in == nil {
		return nil
	}
	out := make([]domain.Message, 0, len(in))
	for _, w := range in {
		out = append(out, w.Domain())
	}
	return out
}

// Time accepts RFC 3339 strings, a few naive layouts or epoch milliseconds.
// null, 0 and anything unparseable decode to the zero time.
type Time time.Time

func (t *Time) UnmarshalJSON(b []byte) error {
	*t = Time{}
	if string(b) == "null" {
		return nil
	}

	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		if ms != 0 {
			*t = Time(time.UnixMilli(ms))
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	*t = Time(ParseTimestamp(s))
	return nil
}

// ParseTimestamp returns the zero time for missing or unparseable stamps.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package domain

import (
	"strings"
	"time"
)

// OptimisticPrefix marks ids generated locally before the server confirmed the message.
const OptimisticPrefix = "temp-"

type Message struct {
	ID                string              `json:"id"`
	SenderID          string              `json:"senderID"`
	SenderDisplayName string              `json:"senderDisplayName,omitempty"`
	SenderAvatar      string              `json:"senderAvatar,omitempty"`
	Content           string              `json:"content"`
	Timestamp         time.Time           `json:"timestamp"`
	Reactions         map[string][]string `json:"reactions,omitempty"` // emoji -> userIDs
	ReplyToMessageID  string              `json:"replyToMessageID,omitempty"`
	ClientMessageID   string              `json:"clientMessageID,omitempty"`
}

func (m Message) Optimistic() bool {
	return strings.HasPrefix(m.ID, OptimisticPrefix)
}

// HasReacted reports whether userID is listed under emoji.
func (m Message) HasReacted(emoji, userID string) bool {
	for _, u := range m.Reactions[emoji] {
		if u == userID {
			return true
		}
	}
	return false
}

// Merge overlays the non-zero fields of patch onto m. Reactions are replaced
// as a whole when patch carries them.
func (m Message) Merge(patch Message) Message {
	out := m
	if patch.ID != "" {
		out.ID = patch.ID
	}
	if patch.SenderID != "" {
		out.SenderID = patch.SenderID
	}
	if patch.SenderDisplayName != "" {
		out.SenderDisplayName = patch.SenderDisplayName
	}
	if patch.SenderAvatar != "" {
		out.SenderAvatar = patch.SenderAvatar
	}
	if patch.Content != "" {
		out.Content = patch.Content
	}
	if !patch.Timestamp.IsZero() {
		out.Timestamp = patch.Timestamp
	}
	if patch.Reactions != nil {
		out.Reactions = cloneReactions(patch.Reactions)
	}
	if patch.ReplyToMessageID != "" {
		out.ReplyToMessageID = patch.ReplyToMessageID
	}
	if patch.ClientMessageID != "" {
		out.ClientMessageID = patch.ClientMessageID
	}
	return out
}

func cloneReactions(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for emoji, users := range in {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}

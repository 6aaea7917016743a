package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/wire"
)

// Outbound frame types
const (
	TypeRegisterUser   = "register_user_ws"
	TypeJoinChat       = "join_chat"
	TypeSendMessage    = "send_message"
	TypeAddReaction    = "add_reaction"
	TypeRemoveReaction = "remove_reaction"
	TypeTyping         = "typing"
)

var errNoMessage = errors.New("payload carries no message")

// Frame is the wire envelope in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewFrame(typ string, payload any) (Frame, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: typ, Payload: b}, nil
}

// Decode unmarshals the payload into dst.
func (f Frame) Decode(dst any) error {
	if len(f.Payload) == 0 {
		return json.Unmarshal([]byte("null"), dst)
	}
	return json.Unmarshal(f.Payload, dst)
}

// --- outbound payloads ---

type RegisterUserPayload struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
}

type JoinChatPayload struct {
	GroupID string `json:"groupID"`
	UserID  string `json:"userID"`
}

type SendMessagePayload struct {
	GroupID          string `json:"groupID"`
	SenderID         string `json:"senderID"`
	Content          string `json:"content"`
	ReplyToMessageID string `json:"replyToMessageID,omitempty"`
	ClientMessageID  string `json:"clientMessageID,omitempty"`
}

type ReactionPayload struct {
	GroupID   string `json:"groupID"`
	MessageID string `json:"messageID"`
	UserID    string `json:"userID"`
	Emoji     string `json:"emoji"`
}

type TypingPayload struct {
	GroupID  string `json:"groupID"`
	UserID   string `json:"userID"`
	IsTyping bool   `json:"isTyping"`
}

// --- inbound payloads ---

// MessagePayload backs new_message and message_updated.
type MessagePayload struct {
	GroupID string
	Message domain.Message
}

// UnmarshalJSON accepts the message under "message", "msg" or "data", or the
// payload itself when it looks like a message.
func (p *MessagePayload) UnmarshalJSON(b []byte) error {
	var env struct {
		GroupID string          `json:"groupID"`
		Message json.RawMessage `json:"message"`
		Msg     json.RawMessage `json:"msg"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	body := firstPresent(env.Message, env.Msg, env.Data)
	inline := body == nil
	if inline {
		body = b
	}

	var wm wire.Message
	if err := json.Unmarshal(body, &wm); err != nil {
		return err
	}
	if inline && (wm.ID == "" || wm.Text() == "") {
		return errNoMessage
	}

	p.GroupID = env.GroupID
	if p.GroupID == "" {
		p.GroupID = wm.GroupID
	}
	p.Message = wm.Domain()
	return nil
}

type UserTypingPayload struct {
	GroupID  string `json:"groupID"`
	UserID   string `json:"userID"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ActiveTyper struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	IsTyping *bool  `json:"isTyping,omitempty"`
}

type GroupTypingStatusPayload struct {
	GroupID      string        `json:"groupID"`
	ActiveTypers []ActiveTyper `json:"activeTypers"`
}

// Entries converts the snapshot; typers without an explicit flag are typing.
func (p GroupTypingStatusPayload) Entries() []domain.TypingEntry {
	out := make([]domain.TypingEntry, 0, len(p.ActiveTypers))
	for _, t := range p.ActiveTypers {
		out = append(out, domain.TypingEntry{
			UserID:   t.UserID,
			Username: t.Username,
			IsTyping: t.IsTyping == nil || *t.IsTyping,
			GroupID:  p.GroupID,
		})
	}
	return out
}

type LeaderboardItem struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

type LeaderboardUpdatePayload struct {
	Leaderboard []LeaderboardItem `json:"leaderboard"`
}

type GroupChatItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Type            string    `json:"type"`
	CreatedByUserID string    `json:"createdByUserID"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ChatCreatedPayload struct {
	GroupChat GroupChatItem `json:"groupChat"`
}

// ErrorText renders an error frame payload for display. Objects with a
// "message" or "error" string use it, anything else is returned verbatim.
func ErrorText(payload json.RawMessage) string {
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil && s != "" {
		return s
	}
	text := strings.TrimSpace(string(payload))
	if text == "" || text == "null" {
		return "server error"
	}
	return text
}

func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, r := range raws {
		if len(r) > 0 && !bytes.Equal(bytes.TrimSpace(r), []byte("null")) {
			return r
		}
	}
	return nil
}

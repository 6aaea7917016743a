package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/cwrk-planet/chatsync/internal/metrics"
	"github.com/cwrk-planet/chatsync/pkg/logger"
)

// Event is a canonical inbound frame type.
type Event string

const (
	EventNewMessage        Event = "new_message"
	EventMessageUpdated    Event = "message_updated"
	EventUserTyping        Event = "user_typing"
	EventGroupTypingStatus Event = "group_typing_status"
	EventLeaderboardUpdate Event = "leaderboard_update"
	EventChatCreated       Event = "chat_created"
	EventServerError       Event = "error"
)

var canonical = map[string]Event{
	"new_message":         EventNewMessage,
	"newMessage":          EventNewMessage,
	"message":             EventNewMessage,
	"message_updated":     EventMessageUpdated,
	"messageUpdated":      EventMessageUpdated,
	"message_update":      EventMessageUpdated,
	"user_typing":         EventUserTyping,
	"group_typing_status": EventGroupTypingStatus,
	"leaderboard_update":  EventLeaderboardUpdate,
	"chat_created":        EventChatCreated,
	"error":               EventServerError,
}

// Canonical maps a wire type, including legacy aliases, to its event.
func Canonical(typ string) (Event, bool) {
	ev, ok := canonical[typ]
	return ev, ok
}

type HandlerFunc func(Frame)

// Router fans inbound frames out to handlers by event. Handlers must be
// registered before frames start flowing; Route is called from a single
// goroutine.
type Router struct {
	log      *slog.Logger
	handlers map[Event][]HandlerFunc
}

func NewRouter() *Router {
	return &Router{
		log:      logger.For("ws.router"),
		handlers: make(map[Event][]HandlerFunc),
	}
}

// On registers h for ev. Handlers for the same event run in registration order.
func (r *Router) On(ev Event, h HandlerFunc) {
	r.handlers[ev] = append(r.handlers[ev], h)
}

// Route decodes one raw frame and delivers it. Malformed and unknown frames
// are logged and dropped.
func (r *Router) Route(raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Type == "" {
		metrics.FramesDiscarded.WithLabelValues("malformed").Inc()
		r.log.Warn("malformed frame discarded", "err", err, "size", len(raw))
		return
	}

	ev, ok := Canonical(f.Type)
	if !ok {
		metrics.FramesDiscarded.WithLabelValues("unknown_type").Inc()
		r.log.Debug("unknown frame type ignored", logger.Frame(f.Type))
		return
	}
	if ev != Event(f.Type) {
		r.log.Debug("legacy frame type", logger.Frame(f.Type), "event", ev)
	}
	f.Type = string(ev)

	metrics.FramesRouted.WithLabelValues(string(ev)).Inc()
	for _, h := range r.handlers[ev] {
		h(f)
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/chatsync/internal/api"
	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/session"
	"github.com/cwrk-planet/chatsync/internal/store"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
	"github.com/cwrk-planet/chatsync/pkg/httputil"
)

// Engine is the subset of *session.Session the inspector drives.
type Engine interface {
	State() *store.State
	JoinGroup(ctx context.Context, groupID string) error
	SendMessage(content, replyTo string) (domain.Message, error)
	ToggleReaction(messageID, emoji string) error
	NotifyTyping() error
	StopTyping() error
}

type Handlers struct {
	Engine Engine
}

func toHTTP(err error) int {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNoCurrentGroup):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, api.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ws.ErrNotConnected), errors.Is(err, api.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, api.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	st := h.Engine.State()
	httputil.OK(w, map[string]string{
		"status":     "ok",
		"connection": string(st.Connection.Status),
	})
}

type stateView struct {
	*store.State
	Typing []domain.TypingEntry `json:"typing"`
}

// GET /state
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	st := h.Engine.State()
	typing := st.VisibleTyping()
	if typing == nil {
		typing = []domain.TypingEntry{}
	}
	httputil.OK(w, stateView{State: st, Typing: typing})
}

// POST /groups/{id}/join
func (h *Handlers) JoinGroup(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httputil.Error(w, http.StatusBadRequest, "group id is required", "")
		return
	}
	if err := h.Engine.JoinGroup(r.Context(), id); err != nil {
		httputil.Error(w, toHTTP(err), "join group failed", err.Error())
		return
	}
	httputil.OK(w, map[string]string{"groupID": id})
}

type sendMessageRequest struct {
	Content string `json:"content"`
	ReplyTo string `json:"replyToMessageID,omitempty"`
}

// POST /messages
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in sendMessageRequest
	if err := httputil.Decode(r, &in); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	msg, err := h.Engine.SendMessage(in.Content, in.ReplyTo)
	if err != nil {
		httputil.Error(w, toHTTP(err), "send message failed", err.Error())
		return
	}
	httputil.JSON(w, http.StatusAccepted, map[string]any{"data": msg})
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// POST /messages/{id}/reactions
func (h *Handlers) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	var in reactionRequest
	if err := httputil.Decode(r, &in); err != nil || strings.TrimSpace(in.Emoji) == "" {
		httputil.Error(w, http.StatusBadRequest, "emoji is required", "")
		return
	}
	if err := h.Engine.ToggleReaction(chi.URLParam(r, "id"), in.Emoji); err != nil {
		httputil.Error(w, toHTTP(err), "reaction failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type typingRequest struct {
	IsTyping bool `json:"isTyping"`
}

// POST /typing
func (h *Handlers) Typing(w http.ResponseWriter, r *http.Request) {
	var in typingRequest
	if err := httputil.Decode(r, &in); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}

	var err error
	if in.IsTyping {
		err = h.Engine.NotifyTyping()
	} else {
		err = h.Engine.StopTyping()
	}
	if err != nil {
		httputil.Error(w, toHTTP(err), "typing failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

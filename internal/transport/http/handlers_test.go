package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/session"
	"github.com/cwrk-planet/chatsync/internal/store"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
)

type fakeEngine struct {
	state   *store.State
	joined  []string
	sent    []string
	typing  []bool
	reacted []string
	sendErr error
}

func (e *fakeEngine) State() *store.State { return e.state }

func (e *fakeEngine) JoinGroup(_ context.Context, id string) error {
	e.joined = append(e.joined, id)
	return nil
}

func (e *fakeEngine) SendMessage(content, _ string) (domain.Message, error) {
	if e.sendErr != nil {
		return domain.Message{}, e.sendErr
	}
	e.sent = append(e.sent, content)
	return domain.Message{ID: "temp-1", Content: content}, nil
}

func (e *fakeEngine) ToggleReaction(id, emoji string) error {
	e.reacted = append(e.reacted, id+":"+emoji)
	return nil
}

func (e *fakeEngine) NotifyTyping() error { e.typing = append(e.typing, true); return nil }
func (e *fakeEngine) StopTyping() error   { e.typing = append(e.typing, false); return nil }

func newEngine() *fakeEngine {
	s := store.Initial()
	s = store.Reduce(s, store.SetConnectionStatus{Status: domain.StatusConnected})
	s = store.Reduce(s, store.SetCurrentGroup{Group: &domain.ChatGroup{ID: "g1", Name: "General"}})
	s = store.Reduce(s, store.SetTypingUsers{Typing: []domain.TypingEntry{
		{UserID: "u2", Username: "Bob", IsTyping: true, GroupID: "g1"},
		{UserID: "u3", Username: "Cy", IsTyping: true, GroupID: "g2"},
	}})
	return &fakeEngine{state: s}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInspector_HealthAndState(t *testing.T) {
	h := NewRouter(Deps{Engine: newEngine()})

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"ok","connection":"connected"}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			CurrentGroup domain.ChatGroup     `json:"currentGroup"`
			Typing       []domain.TypingEntry `json:"typing"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "g1", body.Data.CurrentGroup.ID)
	require.Len(t, body.Data.Typing, 1)
	assert.Equal(t, "Bob", body.Data.Typing[0].Username)
}

func TestInspector_Metrics(t *testing.T) {
	h := NewRouter(Deps{Engine: newEngine()})

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInspector_Commands(t *testing.T) {
	e := newEngine()
	h := NewRouter(Deps{Engine: e})

	rec := do(t, h, http.MethodPost, "/groups/g2/join", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"g2"}, e.joined)

	rec = do(t, h, http.MethodPost, "/messages", `{"content":"hello"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"hello"}, e.sent)

	rec = do(t, h, http.MethodPost, "/messages/m1/reactions", `{"emoji":"👍"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"m1:👍"}, e.reacted)

	do(t, h, http.MethodPost, "/typing", `{"isTyping":true}`)
	do(t, h, http.MethodPost, "/typing", `{"isTyping":false}`)
	assert.Equal(t, []bool{true, false}, e.typing)

	rec = do(t, h, http.MethodPost, "/messages", `{"text":"wrong field"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInspector_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ws.ErrNotConnected, http.StatusServiceUnavailable},
		{session.ErrNoCurrentGroup, http.StatusConflict},
		{session.ErrNotAuthenticated, http.StatusUnauthorized},
		{session.ErrEmptyMessage, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := newEngine()
			e.sendErr = tc.err
			rec := do(t, NewRouter(Deps{Engine: e}), http.MethodPost, "/messages", `{"content":"x"}`)

			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.err.Error())
		})
	}
}

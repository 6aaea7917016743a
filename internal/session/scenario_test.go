package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/store"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
)

// echoServer acknowledges send_message with a server-assigned new_message,
// the way the chat backend does. withCorrelation controls whether the
// client's correlation id is echoed back.
func echoServer(t *testing.T, withCorrelation bool) (url string, received <-chan string) {
	t.Helper()
	types := make(chan string, 32)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			var f ws.Frame
			if json.Unmarshal(data, &f) != nil {
				continue
			}
			select {
			case types <- f.Type:
			default:
			}
			if f.Type != ws.TypeSendMessage {
				continue
			}

			var p ws.SendMessagePayload
			if f.Decode(&p) != nil {
				continue
			}
			msg := map[string]any{
				"id":             "srv-99",
				"senderID":       p.SenderID,
				"senderUsername": "Alice",
				"content":        p.Content,
				"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
			}
			if withCorrelation {
				msg["clientMessageID"] = p.ClientMessageID
			}
			out, _ := json.Marshal(map[string]any{
				"type":    "new_message",
				"payload": map[string]any{"groupId": p.GroupID, "message": msg},
			})
			_ = c.WriteMessage(websocket.TextMessage, out)
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), types
}

func TestScenario_SendHelloConvergesToOneMessage(t *testing.T) {
	for _, correlated := range []bool{false, true} {
		name := "heuristic"
		if correlated {
			name = "correlated"
		}
		t.Run(name, func(t *testing.T) {
			url, received := echoServer(t, correlated)

			st := store.New(nil)
			router := ws.NewRouter()
			var sess *Session
			mgr := ws.NewManager(
				ws.Config{URL: url, BaseDelay: 10 * time.Millisecond},
				ws.NewDialer(ws.DialerConfig{}),
				router,
				ws.WithStatusListener(func(s domain.ConnectionStatus, err error) { sess.HandleStatus(s, err) }),
			)
			t.Cleanup(mgr.Close)

			fa := &fakeAPI{
				user:   domain.User{ID: "u1"},
				groups: map[string]domain.ChatGroup{"g1": {ID: "g1", Name: "General"}},
			}
			sess = New(Deps{Store: st, API: fa, Conn: mgr, Router: router}, Options{})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			require.NoError(t, sess.SetupUser(ctx, "Alice", ""))
			assert.Equal(t, ws.TypeRegisterUser, <-received)
			assert.Equal(t, domain.StatusConnected, st.State().Connection.Status)

			require.NoError(t, sess.JoinGroup(ctx, "g1"))
			assert.Equal(t, ws.TypeJoinChat, <-received)

			_, err := sess.SendMessage("hello", "")
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				msgs := st.State().Messages
				return len(msgs) == 1 && msgs[0].ID == "srv-99"
			}, 3*time.Second, 10*time.Millisecond)

			m := st.State().Messages[0]
			assert.Equal(t, "hello", m.Content)
			assert.Equal(t, "u1", m.SenderID)
		})
	}
}

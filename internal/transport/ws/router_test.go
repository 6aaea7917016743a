package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Aliases(t *testing.T) {
	cases := []struct {
		wire string
		want Event
	}{
		{"new_message", EventNewMessage},
		{"newMessage", EventNewMessage},
		{"message", EventNewMessage},
		{"message_updated", EventMessageUpdated},
		{"messageUpdated", EventMessageUpdated},
		{"message_update", EventMessageUpdated},
		{"user_typing", EventUserTyping},
		{"group_typing_status", EventGroupTypingStatus},
		{"leaderboard_update", EventLeaderboardUpdate},
		{"chat_created", EventChatCreated},
		{"error", EventServerError},
	}
	for _, tc := range cases {
		t.Run(tc.wire, func(t *testing.T) {
			r := NewRouter()
			var got []Frame
			r.On(tc.want, func(f Frame) { got = append(got, f) })

			r.Route([]byte(`{"type":"` + tc.wire + `","payload":{}}`))

			require.Len(t, got, 1)
			assert.Equal(t, string(tc.want), got[0].Type)
		})
	}
}

func TestRouter_FanOutInOrder(t *testing.T) {
	r := NewRouter()
	var order []int
	r.On(EventChatCreated, func(Frame) { order = append(order, 1) })
	r.On(EventChatCreated, func(Frame) { order = append(order, 2) })
	r.On(EventNewMessage, func(Frame) { order = append(order, 99) })

	r.Route([]byte(`{"type":"chat_created","payload":{"groupChat":{"id":"g1"}}}`))

	assert.Equal(t, []int{1, 2}, order)
}

func TestRouter_DropsBadFrames(t *testing.T) {
	r := NewRouter()
	called := false
	for _, ev := range []Event{EventNewMessage, EventServerError} {
		r.On(ev, func(Frame) { called = true })
	}

	r.Route([]byte(`not json`))
	r.Route([]byte(`{"payload":{}}`))
	r.Route([]byte(`{"type":"presence_changed","payload":{}}`))

	assert.False(t, called)
}

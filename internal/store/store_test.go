package store

import (
	"testing"
	"time"

	"github.com/cwrk-planet/chatsync/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestStore_NotifiesOnlyOnChange(t *testing.T) {
	s := New(nil)

	var seen []*State
	unsubscribe := s.Subscribe(func(st *State) { seen = append(seen, st) })

	s.Dispatch(SetLoading{Loading: true})
	s.Dispatch(SetLoading{Loading: true})
	s.Dispatch(unknownAction{})

	assert.Len(t, seen, 1)
	assert.Same(t, s.State(), seen[0])

	unsubscribe()
	s.Dispatch(SetLoading{Loading: false})
	assert.Len(t, seen, 1)
}

func TestStore_BindDispatches(t *testing.T) {
	s := New(nil)
	dispatch := s.Bind()

	dispatch(AddMessage{Message: domain.Message{ID: "temp-1", Content: "x"}})

	assert.Len(t, s.State().Messages, 1)
}

func TestStore_ListenerCanUnsubscribeItself(t *testing.T) {
	s := New(nil)

	calls := 0
	var unsubscribe func()
	unsubscribe = s.Subscribe(func(*State) {
		calls++
		unsubscribe()
	})

	done := make(chan struct{})
	go func() {
		s.Dispatch(SetLoading{Loading: true})
		s.Dispatch(SetLoading{Loading: false})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked")
	}
	assert.Equal(t, 1, calls)
}

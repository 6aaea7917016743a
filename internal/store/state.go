package store

import (
	"github.com/cwrk-planet/chatsync/internal/chat"
	"github.com/cwrk-planet/chatsync/internal/domain"
)

type ConnectionState struct {
	Status domain.ConnectionStatus `json:"status"`
	Error  string                  `json:"error,omitempty"`
}

// State is treated as immutable: the reducer copies whatever it changes.
type State struct {
	User          *domain.User `json:"user,omitempty"`
	Authenticated bool         `json:"authenticated"`

	ChatGroups   []domain.ChatGroup `json:"chatGroups"`
	CurrentGroup *domain.ChatGroup  `json:"currentGroup,omitempty"`
	Messages     []domain.Message   `json:"messages"`
	// Typing keeps entries of every group; read through VisibleTyping.
	Typing []domain.TypingEntry `json:"-"`

	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`

	Loading    bool            `json:"loading"`
	Connection ConnectionState `json:"connection"`

	Error       string `json:"error,omitempty"`
	ServerError string `json:"serverError,omitempty"`
}

func Initial() *State {
	return &State{
		Connection: ConnectionState{Status: domain.StatusDisconnected},
	}
}

func (s *State) CurrentGroupID() string {
	if s.CurrentGroup == nil {
		return ""
	}
	return s.CurrentGroup.ID
}

// VisibleTyping returns the typers of the group being viewed.
func (s *State) VisibleTyping() []domain.TypingEntry {
	return chat.VisibleTyping(s.Typing, s.CurrentGroupID())
}

func (s *State) FindMessage(id string) (domain.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Message{}, false
}

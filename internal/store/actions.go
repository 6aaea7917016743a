package store

import "github.com/cwrk-planet/chatsync/internal/domain"

// Action is the closed set of state transitions understood by Reduce.
type Action interface {
	isAction()
}

type (
	SetLoading          struct{ Loading bool }
	SetConnectionStatus struct{ Status domain.ConnectionStatus }
	SetConnectionError  struct{ Err string }
	SetError            struct{ Err string }
	SetServerError      struct{ Err string }
	SetUser             struct{ User *domain.User }
	SetAuthenticated    struct{ Authenticated bool }
	SetChatGroups       struct{ Groups []domain.ChatGroup }
	SetCurrentGroup     struct{ Group *domain.ChatGroup }
	SetMessages         struct{ Messages []domain.Message }
	AddMessage          struct{ Message domain.Message }
	UpdateMessage       struct {
		ID    string
		Patch domain.Message
	}
	SetTypingUsers struct{ Typing []domain.TypingEntry }
	SetLeaderboard struct{ Entries []domain.LeaderboardEntry }
	AddChatGroup   struct{ Group domain.ChatGroup }
	// Reset drops everything tied to the signed-in user.
	Reset struct{}
)

func (SetLoading) isAction()          {}
func (SetConnectionStatus) isAction() {}
func (SetConnectionError) isAction()  {}
func (SetError) isAction()            {}
func (SetServerError) isAction()      {}
func (SetUser) isAction()             {}
func (SetAuthenticated) isAction()    {}
func (SetChatGroups) isAction()       {}
func (SetCurrentGroup) isAction()     {}
func (SetMessages) isAction()         {}
func (AddMessage) isAction()          {}
func (UpdateMessage) isAction()       {}
func (SetTypingUsers) isAction()      {}
func (SetLeaderboard) isAction()      {}
func (AddChatGroup) isAction()        {}
func (Reset) isAction()               {}

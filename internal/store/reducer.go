package store

import (
	"github.com/cwrk-planet/chatsync/internal/chat"
	"github.com/cwrk-planet/chatsync/internal/domain"
)

// Reduce returns the state after applying a. It never mutates s and returns s
// itself when the action changes nothing, so callers can detect changes by
// pointer comparison.
func Reduce(s *State, a Action) *State {
	switch a := a.(type) {
	case SetLoading:
		if s.Loading == a.Loading {
			return s
		}
		next := *s
		next.Loading = a.Loading
		return &next

	case SetConnectionStatus:
		if s.Connection.Status == a.Status {
			return s
		}
		next := *s
		next.Connection.Status = a.Status
		return &next

	case SetConnectionError:
		if s.Connection.Error == a.Err {
			return s
		}
		next := *s
		next.Connection.Error = a.Err
		return &next

	case SetError:
		if s.Error == a.Err {
			return s
		}
		next := *s
		next.Error = a.Err
		return &next

	case SetServerError:
		if s.ServerError == a.Err {
			return s
		}
		next := *s
		next.ServerError = a.Err
		return &next

	case SetUser:
		next := *s
		next.User = a.User
		return &next

	case SetAuthenticated:
		if s.Authenticated == a.Authenticated {
			return s
		}
		next := *s
		next.Authenticated = a.Authenticated
		return &next

	case SetChatGroups:
		next := *s
		next.ChatGroups = a.Groups
		return &next

	case SetCurrentGroup:
		next := *s
		next.CurrentGroup = a.Group
		return &next

	case SetMessages:
		next := *s
		next.Messages = a.Messages
		return &next

	case AddMessage:
		next := *s
		next.Messages = chat.Reconcile(s.Messages, a.Message)
		return &next

	case UpdateMessage:
		msgs, ok := chat.UpdateByID(s.Messages, a.ID, a.Patch)
		if !ok {
			return s
		}
		next := *s
		next.Messages = msgs
		return &next

	case SetTypingUsers:
		next := *s
		next.Typing = a.Typing
		return &next

	case SetLeaderboard:
		next := *s
		next.Leaderboard = a.Entries
		return &next

	case AddChatGroup:
		next := *s
		groups := make([]domain.ChatGroup, len(s.ChatGroups), len(s.ChatGroups)+1)
		copy(groups, s.ChatGroups)
		for i := range groups {
			if groups[i].ID == a.Group.ID {
				// the creator sees both the REST reply and the broadcast
				if groups[i] == a.Group {
					return s
				}
				groups[i] = a.Group
				next.ChatGroups = groups
				return &next
			}
		}
		next.ChatGroups = append(groups, a.Group)
		return &next

	case Reset:
		next := Initial()
		next.Connection = s.Connection
		next.ChatGroups = s.ChatGroups
		next.Leaderboard = s.Leaderboard
		return next

	default:
		return s
	}
}

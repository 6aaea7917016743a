package session

import (
	"github.com/cwrk-planet/chatsync/internal/chat"
	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/metrics"
	"github.com/cwrk-planet/chatsync/internal/store"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
	"github.com/cwrk-planet/chatsync/pkg/logger"
)

// Frame handlers run on the connection's event loop, one at a time.

func (s *Session) register(r Registrar) {
	r.On(ws.EventNewMessage, s.onNewMessage)
	r.On(ws.EventMessageUpdated, s.onMessageUpdated)
	r.On(ws.EventUserTyping, s.onUserTyping)
	r.On(ws.EventGroupTypingStatus, s.onGroupTypingStatus)
	r.On(ws.EventLeaderboardUpdate, s.onLeaderboardUpdate)
	r.On(ws.EventChatCreated, s.onChatCreated)
	r.On(ws.EventServerError, s.onServerError)
}

func (s *Session) decode(f ws.Frame, dst any) bool {
	if err := f.Decode(dst); err != nil {
		metrics.FramesDiscarded.WithLabelValues("bad_payload").Inc()
		s.log.Warn("frame payload discarded", logger.Frame(f.Type), "err", err)
		return false
	}
	return true
}

// inCurrentGroup reports whether a message event for groupID concerns the
// group being viewed. Events without a group are taken as current.
func inCurrentGroup(st *store.State, groupID string) bool {
	current := st.CurrentGroupID()
	if current == "" {
		return false
	}
	return groupID == "" || groupID == current
}

func (s *Session) onNewMessage(f ws.Frame) {
	var p ws.MessagePayload
	if !s.decode(f, &p) {
		return
	}
	if p.Message.ID == "" {
		metrics.FramesDiscarded.WithLabelValues("bad_payload").Inc()
		s.log.Warn("message without id discarded", logger.Frame(f.Type))
		return
	}
	st := s.store.State()
	if !inCurrentGroup(st, p.GroupID) {
		s.log.Debug("message for another group ignored", logger.Group(p.GroupID))
		return
	}
	if p.Message.Timestamp.IsZero() {
		p.Message.Timestamp = s.opts.Now()
	}

	_, outcome := chat.Match(st.Messages, p.Message)
	metrics.MessagesReconciled.WithLabelValues(string(outcome)).Inc()
	s.dispatch(store.AddMessage{Message: p.Message})
}

func (s *Session) onMessageUpdated(f ws.Frame) {
	var p ws.MessagePayload
	if !s.decode(f, &p) || p.Message.ID == "" {
		return
	}
	if !inCurrentGroup(s.store.State(), p.GroupID) {
		return
	}
	s.dispatch(store.UpdateMessage{ID: p.Message.ID, Patch: p.Message})
}

func (s *Session) onUserTyping(f ws.Frame) {
	var p ws.UserTypingPayload
	if !s.decode(f, &p) || p.UserID == "" {
		return
	}
	next, changed := chat.ApplyTyping(s.store.State().Typing, domain.TypingEntry{
		UserID:   p.UserID,
		Username: p.Username,
		IsTyping: p.IsTyping,
		GroupID:  p.GroupID,
	})
	if changed {
		s.dispatch(store.SetTypingUsers{Typing: next})
	}
}

func (s *Session) onGroupTypingStatus(f ws.Frame) {
	var p ws.GroupTypingStatusPayload
	if !s.decode(f, &p) || p.GroupID == "" {
		return
	}
	next, changed := chat.ApplyTypingSnapshot(s.store.State().Typing, p.GroupID, p.Entries())
	if changed {
		s.dispatch(store.SetTypingUsers{Typing: next})
	}
}

func (s *Session) onLeaderboardUpdate(f ws.Frame) {
	var p ws.LeaderboardUpdatePayload
	if !s.decode(f, &p) {
		return
	}
	st := s.store.State()

	// the broadcast carries no avatars; keep the ones already known
	avatars := make(map[string]string, len(st.Leaderboard))
	for _, e := range st.Leaderboard {
		avatars[e.UserID] = e.Avatar
	}

	entries := make([]domain.LeaderboardEntry, 0, len(p.Leaderboard))
	for _, it := range p.Leaderboard {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:   it.UserID,
			Username: it.Username,
			Points:   it.Points,
			Level:    domain.LevelFor(it.Points),
			Avatar:   avatars[it.UserID],
		})
	}
	s.dispatch(store.SetLeaderboard{Entries: entries})

	if st.User == nil {
		return
	}
	for _, e := range entries {
		if e.UserID != st.User.ID {
			continue
		}
		if e.Points == st.User.Points && e.Level == st.User.Level {
			return
		}
		self := *st.User
		self.Points = e.Points
		self.Level = e.Level
		s.dispatch(store.SetUser{User: &self})
		s.persist(self)
		return
	}
}

func (s *Session) onChatCreated(f ws.Frame) {
	var p ws.ChatCreatedPayload
	if !s.decode(f, &p) || p.GroupChat.ID == "" {
		return
	}
	g := p.GroupChat
	s.dispatch(store.AddChatGroup{Group: domain.ChatGroup{
		ID:              g.ID,
		Name:            g.Name,
		Description:     g.Description,
		Type:            g.Type,
		CreatedByUserID: g.CreatedByUserID,
		CreatedAt:       g.CreatedAt,
		IsActive:        true,
	}})
}

func (s *Session) onServerError(f ws.Frame) {
	text := ws.ErrorText(f.Payload)
	s.log.Warn("server reported error", "error", text)
	s.dispatch(store.SetServerError{Err: text})
}

// HandleStatus mirrors connection transitions into the store and rejoins the
// current group whenever the connection comes up.
func (s *Session) HandleStatus(status domain.ConnectionStatus, err error) {
	s.dispatch(store.SetConnectionStatus{Status: status})
	switch {
	case err != nil:
		s.dispatch(store.SetConnectionError{Err: err.Error()})
	case status == domain.StatusConnected:
		s.dispatch(store.SetConnectionError{})
	}

	if status != domain.StatusConnected {
		return
	}
	st := s.store.State()
	gid := st.CurrentGroupID()
	if gid == "" || st.User == nil {
		return
	}
	if err := s.conn.Send(ws.TypeJoinChat, ws.JoinChatPayload{GroupID: gid, UserID: st.User.ID}); err != nil {
		s.log.Warn("rejoin failed", logger.Group(gid), "err", err)
	}
}

// Package session ties the connection, the REST client and the store together
// into the operations a chat client exposes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/chatsync/internal/api"
	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/identity"
	"github.com/cwrk-planet/chatsync/internal/store"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
	"github.com/cwrk-planet/chatsync/pkg/logger"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoCurrentGroup   = errors.New("no chat group selected")
	ErrEmptyMessage     = errors.New("empty message")
)

// Conn is the part of ws.Manager the session drives.
type Conn interface {
	Connect(ctx context.Context, userID, username string) error
	Disconnect()
	Send(typ string, payload any) error
	Schedule(d time.Duration, fn func()) (cancel func())
	Status() domain.ConnectionStatus
}

// Registrar accepts inbound frame handlers.
type Registrar interface {
	On(ev ws.Event, h ws.HandlerFunc)
}

type IdentityStore interface {
	Load() (identity.Identity, error)
	Save(identity.Identity) error
	Clear() error
}

type Deps struct {
	Store    *store.Store
	API      api.Client
	Conn     Conn
	Router   Registrar
	Identity IdentityStore // optional
}

type Options struct {
	HistoryLimit int
	TypingIdle   time.Duration

	Now   func() time.Time
	NewID func() string
}

type Session struct {
	store    *store.Store
	dispatch store.DispatchFunc
	api      api.Client
	conn     Conn
	ids      IdentityStore
	opts     Options
	log      *slog.Logger

	mu          sync.Mutex
	token       string
	typingGroup string
	cancelIdle  func()
}

func New(d Deps, opts Options) *Session {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.TypingIdle <= 0 {
		opts.TypingIdle = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Session{
		store:    d.Store,
		dispatch: d.Store.Bind(),
		api:      d.API,
		conn:     d.Conn,
		ids:      d.Identity,
		opts:     opts,
		log:      logger.For("session"),
	}
	s.register(d.Router)
	return s
}

func (s *Session) State() *store.State { return s.store.State() }

// fail records err as the user-visible error and returns it.
func (s *Session) fail(op string, err error) error {
	s.log.Warn(op+" failed", "err", err)
	s.dispatch(store.SetError{Err: err.Error()})
	return err
}

func (s *Session) user() (*domain.User, error) {
	st := s.store.State()
	if st.User == nil || !st.Authenticated {
		return nil, ErrNotAuthenticated
	}
	return st.User, nil
}

// target returns the signed-in user and the group being viewed.
func (s *Session) target() (*domain.User, string, error) {
	u, err := s.user()
	if err != nil {
		return nil, "", err
	}
	gid := s.store.State().CurrentGroupID()
	if gid == "" {
		return nil, "", ErrNoCurrentGroup
	}
	return u, gid, nil
}

// --- account ---

// SetupUser creates a new identity, stores it and connects.
func (s *Session) SetupUser(ctx context.Context, username, avatar string) error {
	s.dispatch(store.SetLoading{Loading: true})
	defer s.dispatch(store.SetLoading{Loading: false})
	s.dispatch(store.SetError{})

	res, err := s.api.SetupUser(ctx, api.SetupUserRequest{Username: username, Avatar: avatar})
	if err != nil {
		return s.fail("setup user", err)
	}

	user := res.User
	s.signIn(user, res.Token)
	return s.connect(ctx, user)
}

// Restore resumes the stored identity. It returns identity.ErrNoIdentity when
// nobody signed in before.
func (s *Session) Restore(ctx context.Context) error {
	if s.ids == nil {
		return identity.ErrNoIdentity
	}
	id, err := s.ids.Load()
	if err != nil {
		if errors.Is(err, identity.ErrCorruptIdentity) {
			s.log.Warn("stored identity discarded", "err", err)
		}
		return err
	}

	s.signIn(id.User(), id.Token)
	if err := s.RefreshProfile(ctx); err != nil {
		s.log.Debug("profile refresh skipped", "err", err)
	}
	u, err := s.user()
	if err != nil {
		return err
	}
	return s.connect(ctx, *u)
}

func (s *Session) signIn(user domain.User, token string) {
	if user.Level == 0 {
		user.Level = domain.LevelFor(user.Points)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.dispatch(store.SetUser{User: &user})
	s.dispatch(store.SetAuthenticated{Authenticated: true})
	s.persist(user)
}

func (s *Session) persist(user domain.User) {
	if s.ids == nil {
		return
	}
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if err := s.ids.Save(identity.FromUser(user, token)); err != nil {
		s.log.Warn("identity not saved", "err", err)
	}
}

func (s *Session) connect(ctx context.Context, u domain.User) error {
	if err := s.conn.Connect(ctx, u.ID, u.Username); err != nil {
		s.dispatch(store.SetConnectionError{Err: err.Error()})
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Logout disconnects and forgets the signed-in user.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.typingGroup = ""
	if s.cancelIdle != nil {
		s.cancelIdle()
		s.cancelIdle = nil
	}
	s.mu.Unlock()

	s.conn.Disconnect()
	s.dispatch(store.Reset{})

	if s.ids != nil {
		return s.ids.Clear()
	}
	return nil
}

// RefreshProfile pulls points, level and avatar and merges them when changed.
func (s *Session) RefreshProfile(ctx context.Context) error {
	u, err := s.user()
	if err != nil {
		return err
	}
	remote, err := s.api.GetUserProfile(ctx, u.ID)
	if err != nil {
		return err
	}

	level := domain.LevelFor(remote.Points)
	if u.Points == remote.Points && u.Level == level && u.Avatar == remote.Avatar {
		return nil
	}
	next := *u
	next.Points = remote.Points
	next.Level = level
	next.Avatar = remote.Avatar
	s.dispatch(store.SetUser{User: &next})
	s.persist(next)
	return nil
}

// --- groups ---

func (s *Session) LoadChatGroups(ctx context.Context) error {
	s.dispatch(store.SetLoading{Loading: true})
	defer s.dispatch(store.SetLoading{Loading: false})

	groups, err := s.api.ListChatGroups(ctx)
	if err != nil {
		return s.fail("load chat groups", err)
	}
	s.dispatch(store.SetChatGroups{Groups: groups})
	return nil
}

func (s *Session) CreateChatGroup(ctx context.Context, name, description, typ string) (domain.ChatGroup, error) {
	u, err := s.user()
	if err != nil {
		return domain.ChatGroup{}, err
	}
	g, err := s.api.CreateChatGroup(ctx, api.CreateChatGroupRequest{
		Name:            name,
		Description:     description,
		Type:            typ,
		CreatedByUserID: u.ID,
	})
	if err != nil {
		return domain.ChatGroup{}, s.fail("create chat group", err)
	}
	s.dispatch(store.AddChatGroup{Group: g})
	return g, nil
}

// JoinGroup loads the group and its history, makes it current and joins it
// on the socket when connected. Otherwise the join happens on connect.
func (s *Session) JoinGroup(ctx context.Context, groupID string) error {
	u, err := s.user()
	if err != nil {
		return err
	}
	s.dispatch(store.SetLoading{Loading: true})
	defer s.dispatch(store.SetLoading{Loading: false})

	g, err := s.api.GetChatGroup(ctx, groupID)
	if err != nil {
		return s.fail("join chat group", err)
	}
	history, err := s.api.GetGroupMessages(ctx, groupID, s.opts.HistoryLimit)
	if err != nil && !api.IsNotFound(err) {
		return s.fail("load history", err)
	}

	if prev := s.store.State().CurrentGroupID(); prev != "" && prev != groupID {
		_ = s.StopTyping()
	}
	s.dispatch(store.SetCurrentGroup{Group: &g})
	s.dispatch(store.SetMessages{Messages: history})

	if s.conn.Status() != domain.StatusConnected {
		s.log.Debug("join deferred until connected", logger.Group(groupID))
		return nil
	}
	return s.conn.Send(ws.TypeJoinChat, ws.JoinChatPayload{GroupID: groupID, UserID: u.ID})
}

// --- messaging ---

// SendMessage shows the message right away under a temporary id and sends
// it. The server echo later replaces the temporary copy.
func (s *Session) SendMessage(content, replyTo string) (domain.Message, error) {
	u, gid, err := s.target()
	if err != nil {
		return domain.Message{}, err
	}
	if content == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	if s.conn.Status() != domain.StatusConnected {
		return domain.Message{}, ws.ErrNotConnected
	}

	cid := s.opts.NewID()
	msg := domain.Message{
		ID:                domain.OptimisticPrefix + cid,
		SenderID:          u.ID,
		SenderDisplayName: u.Username,
		SenderAvatar:      u.Avatar,
		Content:           content,
		Timestamp:         s.opts.Now(),
		ReplyToMessageID:  replyTo,
		ClientMessageID:   cid,
	}
	s.dispatch(store.AddMessage{Message: msg})

	_ = s.StopTyping()
	err = s.conn.Send(ws.TypeSendMessage, ws.SendMessagePayload{
		GroupID:          gid,
		SenderID:         u.ID,
		Content:          content,
		ReplyToMessageID: replyTo,
		ClientMessageID:  cid,
	})
	return msg, err
}

func (s *Session) AddReaction(messageID, emoji string) error {
	return s.react(ws.TypeAddReaction, messageID, emoji)
}

func (s *Session) RemoveReaction(messageID, emoji string) error {
	return s.react(ws.TypeRemoveReaction, messageID, emoji)
}

// ToggleReaction removes the user's emoji when present and adds it otherwise.
func (s *Session) ToggleReaction(messageID, emoji string) error {
	u, err := s.user()
	if err != nil {
		return err
	}
	if m, ok := s.store.State().FindMessage(messageID); ok && m.HasReacted(emoji, u.ID) {
		return s.RemoveReaction(messageID, emoji)
	}
	return s.AddReaction(messageID, emoji)
}

func (s *Session) react(typ, messageID, emoji string) error {
	u, gid, err := s.target()
	if err != nil {
		return err
	}
	return s.conn.Send(typ, ws.ReactionPayload{GroupID: gid, MessageID: messageID, UserID: u.ID, Emoji: emoji})
}

// NotifyTyping signals a keystroke. The first one sends typing=true; the
// stop is sent once no keystroke arrived for the idle period.
func (s *Session) NotifyTyping() error {
	u, gid, err := s.target()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelIdle != nil {
		s.cancelIdle()
		s.cancelIdle = nil
	}
	if s.typingGroup != gid {
		if err := s.conn.Send(ws.TypeTyping, ws.TypingPayload{GroupID: gid, UserID: u.ID, IsTyping: true}); err != nil {
			return err
		}
		s.typingGroup = gid
	}
	s.cancelIdle = s.conn.Schedule(s.opts.TypingIdle, func() { _ = s.StopTyping() })
	return nil
}

// StopTyping sends typing=false if a typing signal is outstanding.
func (s *Session) StopTyping() error {
	s.mu.Lock()
	gid := s.typingGroup
	s.typingGroup = ""
	if s.cancelIdle != nil {
		s.cancelIdle()
		s.cancelIdle = nil
	}
	s.mu.Unlock()

	if gid == "" {
		return nil
	}
	u, err := s.user()
	if err != nil {
		return err
	}
	return s.conn.Send(ws.TypeTyping, ws.TypingPayload{GroupID: gid, UserID: u.ID, IsTyping: false})
}

// --- leaderboard ---

func (s *Session) LoadLeaderboard(ctx context.Context) error {
	entries, err := s.api.GetLeaderboard(ctx)
	if err != nil {
		return s.fail("load leaderboard", err)
	}
	s.dispatch(store.SetLeaderboard{Entries: entries})
	return nil
}

package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cwrk-planet/chatsync/internal/api"
	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/transport/ws"
)

type sent struct {
	Type    string
	Payload json.RawMessage
}

type fakeConn struct {
	mu        sync.Mutex
	status    domain.ConnectionStatus
	frames    []sent
	scheduled []func()
	connects  int
}

func (c *fakeConn) Connect(context.Context, string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	c.status = domain.StatusConnected
	return nil
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = domain.StatusDisconnected
	c.scheduled = nil
}

func (c *fakeConn) Send(typ string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != domain.StatusConnected {
		return ws.ErrNotConnected
	}
	b, _ := json.Marshal(payload)
	c.frames = append(c.frames, sent{Type: typ, Payload: b})
	return nil
}

func (c *fakeConn) Schedule(_ time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.scheduled)
	c.scheduled = append(c.scheduled, fn)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.scheduled) {
			c.scheduled[idx] = nil
		}
	}
}

func (c *fakeConn) Status() domain.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// fire runs every pending scheduled callback.
func (c *fakeConn) fire() {
	c.mu.Lock()
	pending := c.scheduled
	c.scheduled = nil
	c.mu.Unlock()
	for _, fn := range pending {
		if fn != nil {
			fn()
		}
	}
}

func (c *fakeConn) sentOf(typ string) []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sent
	for _, f := range c.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

type fakeAPI struct {
	user     domain.User
	groups   map[string]domain.ChatGroup
	history  map[string][]domain.Message
	board    []domain.LeaderboardEntry
	profile  *domain.User
	setupErr error
}

func (a *fakeAPI) SetupUser(_ context.Context, in api.SetupUserRequest) (api.SetupResult, error) {
	if a.setupErr != nil {
		return api.SetupResult{}, a.setupErr
	}
	u := a.user
	u.Username = in.Username
	return api.SetupResult{User: u, Token: "tok-" + u.ID}, nil
}

func (a *fakeAPI) GetUserProfile(_ context.Context, id string) (domain.User, error) {
	if a.profile == nil || a.profile.ID != id {
		return domain.User{}, &api.Error{Op: "get user profile", Status: 404, Err: api.ErrNotFound}
	}
	return *a.profile, nil
}

func (a *fakeAPI) GetLeaderboard(context.Context) ([]domain.LeaderboardEntry, error) {
	return a.board, nil
}

func (a *fakeAPI) CreateChatGroup(_ context.Context, in api.CreateChatGroupRequest) (domain.ChatGroup, error) {
	return domain.ChatGroup{ID: "g-" + in.Name, Name: in.Name, CreatedByUserID: in.CreatedByUserID, IsActive: true}, nil
}

func (a *fakeAPI) ListChatGroups(context.Context) ([]domain.ChatGroup, error) {
	out := make([]domain.ChatGroup, 0, len(a.groups))
	for _, g := range a.groups {
		out = append(out, g)
	}
	return out, nil
}

func (a *fakeAPI) GetChatGroup(_ context.Context, id string) (domain.ChatGroup, error) {
	g, ok := a.groups[id]
	if !ok {
		return domain.ChatGroup{}, &api.Error{Op: "get chat group", Status: 404, Err: api.ErrNotFound}
	}
	return g, nil
}

func (a *fakeAPI) GetGroupMessages(_ context.Context, id string, _ int) ([]domain.Message, error) {
	return a.history[id], nil
}

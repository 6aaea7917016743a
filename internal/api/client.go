// Package api is the REST client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/chatsync/internal/domain"
	"github.com/cwrk-planet/chatsync/internal/wire"
	"github.com/cwrk-planet/chatsync/pkg/logger"
)

// Client is what the session layer needs from the backend.
type Client interface {
	SetupUser(ctx context.Context, in SetupUserRequest) (SetupResult, error)
	GetUserProfile(ctx context.Context, userID string) (domain.User, error)
	GetLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	CreateChatGroup(ctx context.Context, in CreateChatGroupRequest) (domain.ChatGroup, error)
	ListChatGroups(ctx context.Context) ([]domain.ChatGroup, error)
	GetChatGroup(ctx context.Context, id string) (domain.ChatGroup, error)
	GetGroupMessages(ctx context.Context, groupID string, limit int) ([]domain.Message, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	log     *slog.Logger
}

func New(opts Options) (Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api client: empty base url")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("api client: bad base url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		log:     logger.For("api"),
	}, nil
}

func (c *client) SetupUser(ctx context.Context, in SetupUserRequest) (SetupResult, error) {
	if strings.TrimSpace(in.Username) == "" {
		return SetupResult{}, &Error{Op: "setup user", Message: "empty username", Err: ErrInvalidInput}
	}
	var out SetupResult
	if err := c.do(ctx, "setup user", http.MethodPost, "/users/setup", in, &out); err != nil {
		return SetupResult{}, err
	}
	if out.Level == 0 {
		out.Level = domain.LevelFor(out.Points)
	}
	return out, nil
}

func (c *client) GetUserProfile(ctx context.Context, userID string) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, "get user profile", http.MethodGet, "/users/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *client) GetLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var out []domain.LeaderboardEntry
	if err := c.do(ctx, "get leaderboard", http.MethodGet, "/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Level == 0 {
			out[i].Level = domain.LevelFor(out[i].Points)
		}
	}
	return out, nil
}

func (c *client) CreateChatGroup(ctx context.Context, in CreateChatGroupRequest) (domain.ChatGroup, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.ChatGroup{}, &Error{Op: "create chat group", Message: "empty name", Err: ErrInvalidInput}
	}
	var out domain.ChatGroup
	err := c.do(ctx, "create chat group", http.MethodPost, "/chat-groups", in, &out)
	return out, err
}

func (c *client) ListChatGroups(ctx context.Context) ([]domain.ChatGroup, error) {
	var out []domain.ChatGroup
	err := c.do(ctx, "list chat groups", http.MethodGet, "/chat-groups", nil, &out)
	return out, err
}

func (c *client) GetChatGroup(ctx context.Context, id string) (domain.ChatGroup, error) {
	var out domain.ChatGroup
	err := c.do(ctx, "get chat group", http.MethodGet, "/chat-groups/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *client) GetGroupMessages(ctx context.Context, groupID string, limit int) ([]domain.Message, error) {
	path := "/chat-groups/" + url.PathEscape(groupID) + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []wire.Message
	if err := c.do(ctx, "get group messages", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return wire.Messages(out), nil
}

// do performs one call. Bodies are JSON; successful responses are unwrapped
// from {"data": ...}.
func (c *client) do(ctx context.Context, op, method, path string, in, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Message: err.Error(), Err: ErrInvalidInput}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.base+path, body)
	if err != nil {
		return &Error{Op: op, Message: err.Error(), Err: ErrInvalidInput}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api call failed", "op", op, "err", err)
		return &Error{Op: op, Message: err.Error(), Err: ErrUnavailable}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return &Error{Op: op, Status: res.StatusCode, Message: err.Error(), Err: ErrUpstream}
	}
	c.log.Debug("api call", "op", op, "status", res.StatusCode, "duration", time.Since(start).String())

	if res.StatusCode >= 300 {
		return &Error{Op: op, Status: res.StatusCode, Message: errorMessage(raw, res.Status), Err: fromStatus(res.StatusCode)}
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Op: op, Status: res.StatusCode, Message: "decode envelope: " + err.Error(), Err: ErrUpstream}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Op: op, Status: res.StatusCode, Message: "decode data: " + err.Error(), Err: ErrUpstream}
	}
	return nil
}

// errorMessage pulls a human message out of {"error":{"message":...}} or
// {"error":"..."}.
func errorMessage(raw []byte, fallback string) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Error) == 0 {
		return fallback
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil && s != "" {
		return s
	}
	return fallback
}

// IsNotFound is a shorthand used by callers that treat a missing record as empty.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

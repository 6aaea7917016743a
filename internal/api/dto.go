package api

import "github.com/cwrk-planet/chatsync/internal/domain"

type SetupUserRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// SetupResult is the freshly created identity.
type SetupResult struct {
	domain.User
	Token string `json:"token,omitempty"`
}

type CreateChatGroupRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Type            string `json:"type,omitempty"`
	CreatedByUserID string `json:"createdByUserID"`
}

package domain

import "time"

type ChatGroup struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Type            string    `json:"type,omitempty"`
	CreatedByUserID string    `json:"createdByUserID,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	MemberCount     int       `json:"memberCount,omitempty"`
	IsActive        bool      `json:"isActive"`
}

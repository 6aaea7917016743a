package domain

type TypingEntry struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
	GroupID  string `json:"groupID"`
}

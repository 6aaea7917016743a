package domain

const pointsPerLevel = 100

type User struct {
	ID       string   `json:"userID"`
	Username string   `json:"username"`
	Avatar   string   `json:"avatar,omitempty"`
	Points   int      `json:"points"`
	Level    int      `json:"level"`
	Badges   []string `json:"badges,omitempty"`
}

type LeaderboardEntry struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
	Avatar   string `json:"avatar,omitempty"`
}

// LevelFor derives the gamification level from accumulated points.
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return points/pointsPerLevel + 1
}

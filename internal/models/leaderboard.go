package models

type LeaderboardItem struct {
	Username string  `json:"username"`
	UserId   int64   `json:"user_id"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank,omitempty"`
	Avatar   *string `json:"avatar"`
}

type LeaderboardResponse struct {
	Leaderboard []*LeaderboardItem `json:"leaderboard"`
	Me          *LeaderboardItem   `json:"me"`
}

type TribeStanding struct {
	Tribe      Tribe `json:"tribe"`
	Total      int64 `json:"total"`
	Rank       int   `json:"rank"`
	BattleWins int64 `json:"battle_wins"`
	RaidDamage int64 `json:"raid_damage"`
}

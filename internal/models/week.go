package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Week runs Monday 00:00 to Sunday 23:59; (number, year) is the composite key.
// WinnerTribe stays null on a tie at the top or when no tribe scored.
type Week struct {
	bun.BaseModel `bun:"table:week"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Number        int       `bun:"number" json:"number"`
	Year          int       `bun:"year" json:"year"`
	StartsAt      time.Time `bun:"starts_at" json:"starts_at"`
	EndsAt        time.Time `bun:"ends_at" json:"ends_at"`
	IsActive      bool      `bun:"is_active" json:"is_active"`
	WinnerTribe   *Tribe    `bun:"winner_tribe" json:"winner_tribe"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

// TribeScore is one row per (week, tribe); frozen at rollover.
type TribeScore struct {
	bun.BaseModel `bun:"table:tribe_score"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	WeekID        int64     `bun:"week_id" json:"week_id"`
	Tribe         Tribe     `bun:"tribe" json:"tribe"`
	Activity      int64     `bun:"activity" json:"activity"`
	Social        int64     `bun:"social" json:"social"`
	Consistency   int64     `bun:"consistency" json:"consistency"`
	Event         int64     `bun:"event" json:"event"`
	Power         int64     `bun:"power" json:"power"`
	Total         int64     `bun:"total" json:"total"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

type TribeBadge struct {
	bun.BaseModel `bun:"table:tribe_badge"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	WeekID        int64     `bun:"week_id" json:"week_id"`
	Tribe         Tribe     `bun:"tribe" json:"tribe"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

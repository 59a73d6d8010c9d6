package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BattleStatus string

const (
	BattleStatusPending   BattleStatus = "PENDING"
	BattleStatusCompleted BattleStatus = "COMPLETED"
	BattleStatusCancelled BattleStatus = "CANCELLED"
)

// Battle keeps its whole PvP lifecycle in one row. Acceptance and settlement
// are a single atomic transition (PENDING -> COMPLETED); the two transaction
// signatures are globally single-use.
type Battle struct {
	bun.BaseModel   `bun:"table:battle"`
	ID              string        `bun:"id,pk" json:"id"`
	ChallengerID    int64         `bun:"challenger_id" json:"challenger_id"`
	ChallengerPetID int64         `bun:"challenger_pet_id" json:"challenger_pet_id"`
	ChallengerPower int64         `bun:"challenger_power" json:"challenger_power"`
	ChallengerBet   int64         `bun:"challenger_bet" json:"challenger_bet"`
	ChallengerTx    string        `bun:"challenger_tx" json:"-"`
	DefenderID      *int64        `bun:"defender_id" json:"defender_id"`
	DefenderPetID   *int64        `bun:"defender_pet_id" json:"defender_pet_id"`
	DefenderPower   *int64        `bun:"defender_power" json:"defender_power"`
	DefenderBet     *int64        `bun:"defender_bet" json:"defender_bet"`
	DefenderTx      *string       `bun:"defender_tx" json:"-"`
	Status          BattleStatus  `bun:"status" json:"status"`
	WinnerID        *int64        `bun:"winner_id" json:"winner_id"`
	WinnerPetID     *int64        `bun:"winner_pet_id" json:"winner_pet_id"`
	PrizePool       int64         `bun:"prize_pool" json:"prize_pool"`
	BurnedAmount    int64         `bun:"burned_amount" json:"burned_amount"`
	Replay          []ReplayFrame `bun:"replay,type:jsonb" json:"replay"`
	CreatedAt       time.Time     `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time     `bun:"updated_at" json:"updated_at"`
	SettledAt       *time.Time    `bun:"settled_at" json:"settled_at"`
}

func (battle *Battle) Terminal() bool {
	return battle.Status == BattleStatusCompleted || battle.Status == BattleStatusCancelled
}

type ReplaySide string

const (
	ReplaySideChallenger ReplaySide = "challenger"
	ReplaySideDefender   ReplaySide = "defender"
)

// ReplayFrame is cosmetic narrative over a pre-decided outcome; the frame
// sequence never decides the winner.
type ReplayFrame struct {
	Attacker     ReplaySide `json:"attacker"`
	Damage       int        `json:"damage"`
	Crit         bool       `json:"crit"`
	Dodged       bool       `json:"dodged"`
	ChallengerHP int        `json:"challenger_hp"`
	DefenderHP   int        `json:"defender_hp"`
}

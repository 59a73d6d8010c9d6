package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RaidStatus string

const (
	RaidStatusActive   RaidStatus = "ACTIVE"
	RaidStatusDefeated RaidStatus = "DEFEATED"
	RaidStatusExpired  RaidStatus = "EXPIRED"
)

type BossRaid struct {
	bun.BaseModel   `bun:"table:boss_raid"`
	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	WeekID          int64      `bun:"week_id" json:"week_id"`
	BossName        string     `bun:"boss_name" json:"boss_name"`
	Element         string     `bun:"element" json:"element"`
	HPMax           int64      `bun:"hp_max" json:"hp_max"`
	HPCurrent       int64      `bun:"hp_current" json:"hp_current"`
	EntryFee        int64      `bun:"entry_fee" json:"entry_fee"`
	RewardPool      int64      `bun:"reward_pool" json:"reward_pool"`
	RewardRemainder int64      `bun:"reward_remainder" json:"reward_remainder"`
	Status          RaidStatus `bun:"status" json:"status"`
	CreatedAt       time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at" json:"updated_at"`
	DefeatedAt      *time.Time `bun:"defeated_at" json:"defeated_at"`
}

// RaidParticipant is unique per (raid, user). RewardClaimed is the idempotency
// gate for payouts; LastAttackAt doubles as the attack cooldown anchor and the
// top-10 tie-break (earlier final damage wins).
type RaidParticipant struct {
	bun.BaseModel  `bun:"table:raid_participant"`
	ID             int64      `bun:"id,pk,autoincrement" json:"id"`
	RaidID         int64      `bun:"raid_id" json:"raid_id"`
	UserID         int64      `bun:"user_id" json:"user_id"`
	PetID          int64      `bun:"pet_id" json:"pet_id"`
	TotalDamage    int64      `bun:"total_damage" json:"total_damage"`
	AttackCount    int        `bun:"attack_count" json:"attack_count"`
	SipContributed int64      `bun:"sip_contributed" json:"sip_contributed"`
	IsKillingBlow  bool       `bun:"is_killing_blow" json:"is_killing_blow"`
	RewardClaimed  bool       `bun:"reward_claimed" json:"reward_claimed"`
	RewardPaid     int64      `bun:"reward_paid" json:"reward_paid"`
	LastAttackAt   *time.Time `bun:"last_attack_at" json:"last_attack_at"`
	CreatedAt      time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at" json:"updated_at"`
}

type RaidAttackResult struct {
	Damage        int64 `json:"damage"`
	AppliedDamage int64 `json:"applied_damage"`
	Crit          bool  `json:"crit"`
	HPRemaining   int64 `json:"hp_remaining"`
	KillingBlow   bool  `json:"killing_blow"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PetStageEgg      = 1
	PetStageBaby     = 2
	PetStageJuvenile = 3
	PetStageAdult    = 4
	PetStageAscended = 5

	StatMin = 0
	StatMax = 100

	// stats lost per hour since the last stat refresh
	HungerDecayPerHour = 2
	MoodDecayPerHour   = 1
	EnergyDecayPerHour = 1

	NeglectAfter = 48 * time.Hour
)

type Pet struct {
	bun.BaseModel `bun:"table:pet"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64      `bun:"user_id" json:"user_id"`
	Name          string     `bun:"name" json:"name"`
	Tribe         Tribe      `bun:"tribe" json:"tribe"`
	Stage         int        `bun:"stage" json:"stage"`
	Hunger        int        `bun:"hunger" json:"hunger"`
	Mood          int        `bun:"mood" json:"mood"`
	Energy        int        `bun:"energy" json:"energy"`
	Reputation    int        `bun:"reputation" json:"reputation"`
	CareStreak    int        `bun:"care_streak" json:"care_streak"`
	TotalActions  int        `bun:"total_actions" json:"total_actions"`
	Power         int64      `bun:"power" json:"power"`
	StakedAmount  int64      `bun:"staked_amount" json:"staked_amount"`
	LastActionAt  *time.Time `bun:"last_action_at" json:"last_action_at"`
	StatsAt       time.Time  `bun:"stats_at" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at" json:"updated_at"`

	Skills         []*PetSkill `bun:"-" json:"skills"`
	IsNeglected    bool        `bun:"-" json:"is_neglected"`
	NeglectPenalty int64       `bun:"-" json:"neglect_penalty,omitempty"`
}

func ClampStat(v int) int {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

// ApplyDecay rolls hunger/mood/energy forward to now. Reputation never decays.
func (pet *Pet) ApplyDecay(now time.Time) {
	hours := int(now.Sub(pet.StatsAt).Hours())
	if hours <= 0 {
		return
	}

	pet.Hunger = ClampStat(pet.Hunger - hours*HungerDecayPerHour)
	pet.Mood = ClampStat(pet.Mood - hours*MoodDecayPerHour)
	pet.Energy = ClampStat(pet.Energy - hours*EnergyDecayPerHour)
	pet.StatsAt = now
}

// StageThresholds maps total actions to the stage unlocked at that count.
var StageThresholds = []struct {
	Actions int
	Stage   int
}{
	{0, PetStageEgg},
	{10, PetStageBaby},
	{50, PetStageJuvenile},
	{150, PetStageAdult},
	{400, PetStageAscended},
}

func StageForActions(totalActions int) int {
	stage := PetStageEgg
	for _, threshold := range StageThresholds {
		if totalActions >= threshold.Actions {
			stage = threshold.Stage
		}
	}
	return stage
}

func (pet *Pet) Neglected(now time.Time) bool {
	if pet.LastActionAt == nil {
		return now.Sub(pet.CreatedAt) >= NeglectAfter
	}
	return now.Sub(*pet.LastActionAt) >= NeglectAfter
}

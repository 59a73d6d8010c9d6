package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PetEventType string

const (
	EventActionPerformed  PetEventType = "action_performed"
	EventVisitReceived    PetEventType = "visit_received"
	EventReactionReceived PetEventType = "reaction_received"
	EventEvolved          PetEventType = "evolved"
	EventBattleSettled    PetEventType = "battle_settled"
	EventRaidAttack       PetEventType = "raid_attack"
	EventRaidDefeated     PetEventType = "raid_defeated"
	EventRaidKillingBlow  PetEventType = "raid_killing_blow"
	EventSkillAcquired    PetEventType = "skill_acquired"
	EventSkillLeveled     PetEventType = "skill_leveled"
	EventWeekRolledOver   PetEventType = "week_rolled_over"
)

// PetEvent is the append-only event log the TribeScoreAggregator folds over.
// Ref keeps the row unique per logical occurrence (battle id, raid+attack
// counter, feed signature) so replays of a failed request cannot double-insert.
type PetEvent struct {
	bun.BaseModel `bun:"table:pet_event"`
	ID            int64        `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64        `bun:"user_id" json:"user_id"`
	PetID         int64        `bun:"pet_id" json:"pet_id"`
	Tribe         Tribe        `bun:"tribe" json:"tribe"`
	Type          PetEventType `bun:"type" json:"type"`
	Value         int64        `bun:"value" json:"value"`
	Ref           string       `bun:"ref" json:"ref"`
	CreatedAt     time.Time    `bun:"created_at,default:current_timestamp" json:"created_at"`
}

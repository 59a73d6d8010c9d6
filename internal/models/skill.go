package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MaxSkillsPerPet = 6
	MaxSkillLevel   = 5
)

type EffectKind string

const (
	EffectDamageBoost  EffectKind = "damage_boost"
	EffectDefenseBoost EffectKind = "defense_boost"
	EffectCritChance   EffectKind = "crit_chance"
	EffectDodgeChance  EffectKind = "dodge_chance"
	EffectLuck         EffectKind = "luck"
	EffectPowerScaling EffectKind = "power_scaling"
)

type PetSkill struct {
	bun.BaseModel `bun:"table:pet_skill"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	PetID         int64     `bun:"pet_id" json:"pet_id"`
	SkillID       string    `bun:"skill_id" json:"skill_id"`
	Tier          int       `bun:"tier" json:"tier"`
	Level         int       `bun:"level" json:"level"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

// EffectValue is the catalog base value scaled by the instance level.
func (skill *PetSkill) EffectValue() float64 {
	def := SkillByID(skill.SkillID)
	if def == nil {
		return 0
	}
	return def.BaseValue * float64(skill.Level)
}

type SkillDef struct {
	ID        string
	Name      string
	Tier      int
	Effect    EffectKind
	BaseValue float64
}

// SkillCatalog is fixed; tiers 1..4 in catalog order. Order matters: it is the
// stable tie-break for tier selection and level-up target picks.
var SkillCatalog = []SkillDef{
	{ID: "nibble", Name: "Nibble", Tier: 1, Effect: EffectDamageBoost, BaseValue: 0.02},
	{ID: "thick-fur", Name: "Thick Fur", Tier: 1, Effect: EffectDefenseBoost, BaseValue: 0.02},
	{ID: "zoomies", Name: "Zoomies", Tier: 1, Effect: EffectDodgeChance, BaseValue: 0.01},
	{ID: "sharp-claws", Name: "Sharp Claws", Tier: 2, Effect: EffectDamageBoost, BaseValue: 0.04},
	{ID: "lucky-whiskers", Name: "Lucky Whiskers", Tier: 2, Effect: EffectLuck, BaseValue: 0.02},
	{ID: "iron-shell", Name: "Iron Shell", Tier: 2, Effect: EffectDefenseBoost, BaseValue: 0.04},
	{ID: "predator-eye", Name: "Predator Eye", Tier: 3, Effect: EffectCritChance, BaseValue: 0.03},
	{ID: "phantom-step", Name: "Phantom Step", Tier: 3, Effect: EffectDodgeChance, BaseValue: 0.03},
	{ID: "apex-instinct", Name: "Apex Instinct", Tier: 4, Effect: EffectDamageBoost, BaseValue: 0.08},
	{ID: "fortuna", Name: "Fortuna", Tier: 4, Effect: EffectPowerScaling, BaseValue: 0.05},
}

// TierWeights and TierThresholds configure the acquisition roll: weight per
// tier and the minimum pet power unlocking it. Only tier 1 has a zero
// threshold, so a pet always has at least one eligible tier.
var (
	TierWeights    = map[int]int{1: 60, 2: 28, 3: 10, 4: 2}
	TierThresholds = map[int]int64{1: 0, 2: 100, 3: 500, 4: 1000}
)

func SkillByID(id string) *SkillDef {
	for i := range SkillCatalog {
		if SkillCatalog[i].ID == id {
			return &SkillCatalog[i]
		}
	}
	return nil
}

func SkillsOfTier(tier int) []SkillDef {
	var out []SkillDef
	for _, def := range SkillCatalog {
		if def.Tier == tier {
			out = append(out, def)
		}
	}
	return out
}

// CombatEffects is the SkillEngine aggregate: same-kind effects add linearly,
// each scaled by its skill level. No caps here; resolvers bound the derived
// probabilities themselves.
type CombatEffects struct {
	DamageBoost  float64 `json:"damage_boost"`
	DefenseBoost float64 `json:"defense_boost"`
	CritChance   float64 `json:"crit_chance"`
	DodgeChance  float64 `json:"dodge_chance"`
	Luck         float64 `json:"luck"`
	PowerScaling float64 `json:"power_scaling"`
}

type SkillRollOutcome string

const (
	SkillRollNone     SkillRollOutcome = "none"
	SkillRollNewSkill SkillRollOutcome = "new_skill"
	SkillRollLevelUp  SkillRollOutcome = "level_up"
)

type SkillRollResult struct {
	Outcome SkillRollOutcome `json:"outcome"`
	SkillID string           `json:"skill_id,omitempty"`
	Tier    int              `json:"tier,omitempty"`
	Level   int              `json:"level,omitempty"`
}

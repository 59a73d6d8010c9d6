package services

import (
	"math"
	"testing"

	"sippets/internal/models"
)

func TestAggregateEffectsScalesByLevel(t *testing.T) {
	skills := []*models.PetSkill{
		{SkillID: "nibble", Level: 3},      // damage 0.02 * 3
		{SkillID: "sharp-claws", Level: 1}, // damage 0.04
		{SkillID: "zoomies", Level: 2},     // dodge 0.01 * 2
		{SkillID: "fortuna", Level: 1},     // power scaling 0.05
	}

	effects := AggregateEffects(skills)

	if math.Abs(effects.DamageBoost-0.10) > 1e-9 {
		t.Fatalf("damage boost: got %v want 0.10", effects.DamageBoost)
	}
	if math.Abs(effects.DodgeChance-0.02) > 1e-9 {
		t.Fatalf("dodge chance: got %v want 0.02", effects.DodgeChance)
	}
	if math.Abs(effects.PowerScaling-0.05) > 1e-9 {
		t.Fatalf("power scaling: got %v want 0.05", effects.PowerScaling)
	}
}

func TestAggregateEffectsUnknownSkillIgnored(t *testing.T) {
	effects := AggregateEffects([]*models.PetSkill{{SkillID: "no-such-skill", Level: 5}})
	if effects != (models.CombatEffects{}) {
		t.Fatalf("unknown skill contributed: %+v", effects)
	}
}

func TestResolveRollNewSkillInCatalogOrder(t *testing.T) {
	result := resolveRoll(1, nil)
	if result.Outcome != models.SkillRollNewSkill {
		t.Fatalf("got %s want new_skill", result.Outcome)
	}
	if result.SkillID != "nibble" || result.Level != 1 {
		t.Fatalf("got %s level %d, want nibble level 1", result.SkillID, result.Level)
	}

	// first of the tier already at hand, move to the next in catalog order
	owned := []*models.PetSkill{{SkillID: "nibble", Tier: 1, Level: 1}}
	result = resolveRoll(1, owned)
	if result.SkillID != "thick-fur" {
		t.Fatalf("got %s want thick-fur", result.SkillID)
	}
}

func TestResolveRollLevelUpWhenSlotsFull(t *testing.T) {
	owned := []*models.PetSkill{
		{SkillID: "nibble", Tier: 1, Level: 4},
		{SkillID: "thick-fur", Tier: 1, Level: 2},
		{SkillID: "zoomies", Tier: 1, Level: 3},
		{SkillID: "sharp-claws", Tier: 2, Level: 1},
		{SkillID: "lucky-whiskers", Tier: 2, Level: 1},
		{SkillID: "iron-shell", Tier: 2, Level: 1},
	}

	result := resolveRoll(1, owned)
	if result.Outcome != models.SkillRollLevelUp {
		t.Fatalf("got %s want level_up", result.Outcome)
	}
	// lowest level of the rolled tier wins
	if result.SkillID != "thick-fur" || result.Level != 3 {
		t.Fatalf("got %s -> level %d, want thick-fur -> 3", result.SkillID, result.Level)
	}
}

func TestResolveRollFallsBackAcrossTiers(t *testing.T) {
	// all tier 3 skills missing but slots are full; tier 3 roll levels up the
	// lowest-level owned skill overall instead
	owned := []*models.PetSkill{
		{SkillID: "nibble", Tier: 1, Level: 5},
		{SkillID: "thick-fur", Tier: 1, Level: 5},
		{SkillID: "zoomies", Tier: 1, Level: 5},
		{SkillID: "sharp-claws", Tier: 2, Level: 5},
		{SkillID: "lucky-whiskers", Tier: 2, Level: 2},
		{SkillID: "iron-shell", Tier: 2, Level: 5},
	}

	result := resolveRoll(3, owned)
	if result.Outcome != models.SkillRollLevelUp {
		t.Fatalf("got %s want level_up", result.Outcome)
	}
	if result.SkillID != "lucky-whiskers" || result.Level != 3 {
		t.Fatalf("got %s -> level %d, want lucky-whiskers -> 3", result.SkillID, result.Level)
	}
}

func TestResolveRollNoneWhenEverythingMaxed(t *testing.T) {
	owned := []*models.PetSkill{
		{SkillID: "nibble", Tier: 1, Level: models.MaxSkillLevel},
		{SkillID: "thick-fur", Tier: 1, Level: models.MaxSkillLevel},
		{SkillID: "zoomies", Tier: 1, Level: models.MaxSkillLevel},
		{SkillID: "sharp-claws", Tier: 2, Level: models.MaxSkillLevel},
		{SkillID: "lucky-whiskers", Tier: 2, Level: models.MaxSkillLevel},
		{SkillID: "iron-shell", Tier: 2, Level: models.MaxSkillLevel},
	}

	result := resolveRoll(1, owned)
	if result.Outcome != models.SkillRollNone {
		t.Fatalf("got %s want none", result.Outcome)
	}
}

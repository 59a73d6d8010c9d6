package services

import (
	"context"
	"fmt"

	"sippets/internal/datastore"
	"sippets/internal/models"
	"sippets/internal/pkg/gacha"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceSkill struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	rng                gacha.RNG
	tierSelector       *gacha.TierSelector
}

func NewServiceSkill(container *do.Injector) (*ServiceSkill, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	rng, err := do.Invoke[gacha.RNG](container)
	if err != nil {
		return nil, err
	}

	choices := make([]gacha.TierChoice, 0, len(models.TierWeights))
	for tier := 1; tier <= 4; tier++ {
		choices = append(choices, gacha.TierChoice{
			Tier:      tier,
			Weight:    models.TierWeights[tier],
			Threshold: models.TierThresholds[tier],
		})
	}

	return &ServiceSkill{container, postgresDB, readonlyPostgresDB, rng, gacha.NewTierSelector(choices)}, nil
}

// AggregateEffects sums owned skills by effect kind, each scaled by level.
// Same-kind effects add linearly; no caps here, resolvers bound the derived
// probabilities themselves.
func AggregateEffects(skills []*models.PetSkill) models.CombatEffects {
	var effects models.CombatEffects
	for _, skill := range skills {
		def := models.SkillByID(skill.SkillID)
		if def == nil {
			continue
		}
		value := skill.EffectValue()
		switch def.Effect {
		case models.EffectDamageBoost:
			effects.DamageBoost += value
		case models.EffectDefenseBoost:
			effects.DefenseBoost += value
		case models.EffectCritChance:
			effects.CritChance += value
		case models.EffectDodgeChance:
			effects.DodgeChance += value
		case models.EffectLuck:
			effects.Luck += value
		case models.EffectPowerScaling:
			effects.PowerScaling += value
		}
	}
	return effects
}

func (service *ServiceSkill) EffectsFor(ctx context.Context, petID int64) (models.CombatEffects, []*models.PetSkill, error) {
	skills, err := datastore.GetSkillsByPetID(ctx, service.readonlyPostgresDB, petID)
	if err != nil {
		return models.CombatEffects{}, nil, errorx.Wrap(err, errorx.Service)
	}
	return AggregateEffects(skills), skills, nil
}

// resolveRoll decides the grant for a tier against the pet's current skill
// set without touching storage. Catalog order is the stable tie-break
// everywhere a choice is needed.
func resolveRoll(tier int, owned []*models.PetSkill) models.SkillRollResult {
	ownedByID := make(map[string]*models.PetSkill, len(owned))
	for _, skill := range owned {
		ownedByID[skill.SkillID] = skill
	}

	tierDefs := models.SkillsOfTier(tier)

	if len(owned) < models.MaxSkillsPerPet {
		for _, def := range tierDefs {
			if _, ok := ownedByID[def.ID]; !ok {
				return models.SkillRollResult{Outcome: models.SkillRollNewSkill, SkillID: def.ID, Tier: tier, Level: 1}
			}
		}
	}

	// slots full or every skill of the tier owned: level up the lowest-level
	// owned skill of the tier, then fall back to the lowest-level overall
	pick := lowestLevelBelow(tierDefs, ownedByID)
	if pick == nil {
		pick = lowestLevelBelow(models.SkillCatalog, ownedByID)
	}
	if pick == nil {
		return models.SkillRollResult{Outcome: models.SkillRollNone}
	}

	return models.SkillRollResult{
		Outcome: models.SkillRollLevelUp,
		SkillID: pick.SkillID,
		Tier:    pick.Tier,
		Level:   pick.Level + 1,
	}
}

func lowestLevelBelow(defs []models.SkillDef, ownedByID map[string]*models.PetSkill) *models.PetSkill {
	var pick *models.PetSkill
	for _, def := range defs {
		skill, ok := ownedByID[def.ID]
		if !ok || skill.Level >= models.MaxSkillLevel {
			continue
		}
		if pick == nil || skill.Level < pick.Level {
			pick = skill
		}
	}
	return pick
}

// RollAcquisition runs the guaranteed roll a qualifying feed earns: one tier
// draw gated on the pet's power, then a deterministic grant. It writes through
// the caller's transaction so the grant commits or rolls back together with
// the feed that earned it. ref ties the resulting event to the feed signature
// so a retried request cannot grant twice.
func (service *ServiceSkill) RollAcquisition(ctx context.Context, tx bun.IDB, pet *models.Pet, ref string) (*models.SkillRollResult, error) {
	tier, err := service.tierSelector.Pick(service.rng, pet.Power)
	if err != nil {
		// only reachable with a broken catalog
		return nil, err
	}

	owned, err := datastore.GetSkillsByPetID(ctx, tx, pet.ID)
	if err != nil {
		return nil, err
	}

	result := resolveRoll(tier, owned)
	if result.Outcome == models.SkillRollNone {
		return &result, nil
	}

	eventType := models.EventSkillAcquired
	switch result.Outcome {
	case models.SkillRollNewSkill:
		_, err := datastore.CreatePetSkill(ctx, tx, &models.PetSkill{
			PetID:   pet.ID,
			SkillID: result.SkillID,
			Tier:    result.Tier,
			Level:   1,
		})
		if err != nil {
			return nil, err
		}
	case models.SkillRollLevelUp:
		bumped, err := datastore.LevelUpPetSkill(ctx, tx, pet.ID, result.SkillID, models.MaxSkillLevel)
		if err != nil {
			return nil, err
		}
		if !bumped {
			result = models.SkillRollResult{Outcome: models.SkillRollNone}
			return &result, nil
		}
		eventType = models.EventSkillLeveled
	}

	err = datastore.InsertPetEvent(ctx, tx, &models.PetEvent{
		UserID: pet.UserID,
		PetID:  pet.ID,
		Tribe:  pet.Tribe,
		Type:   eventType,
		Value:  int64(result.Tier),
		Ref:    fmt.Sprintf("%s:%s", ref, result.SkillID),
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

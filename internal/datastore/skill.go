package datastore

import (
	"context"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePetSkill(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PetSkill)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PetSkill)(nil)).Index("index_pet_skill_pet_id_skill_id").IfNotExists().Unique().Column("pet_id", "skill_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetSkillsByPetID(ctx context.Context, db bun.IDB, petID int64) ([]*models.PetSkill, error) {
	var skills []*models.PetSkill
	err := db.NewSelect().
		Model(&skills).
		Where("pet_id = ?", petID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return skills, nil
}

func CreatePetSkill(ctx context.Context, db bun.IDB, skill *models.PetSkill) (*models.PetSkill, error) {
	_, err := db.NewInsert().Model(skill).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return skill, nil
}

// LevelUpPetSkill bumps the level only while below cap, so a concurrent
// duplicate roll cannot push a skill past MaxSkillLevel.
func LevelUpPetSkill(ctx context.Context, db bun.IDB, petID int64, skillID string, maxLevel int) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.PetSkill)(nil)).
		Set("level = level + 1").
		Set("updated_at = ?", time.Now()).
		Where("pet_id = ?", petID).
		Where("skill_id = ?", skillID).
		Where("level < ?", maxLevel).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func CountSkillsByTribe(ctx context.Context, db *bun.DB, tribe models.Tribe) (int64, error) {
	var total int64
	err := db.NewSelect().
		ColumnExpr("COUNT(ps.id)").
		TableExpr("pet_skill AS ps").
		Join("JOIN pet AS p ON p.id = ps.pet_id").
		Where("p.tribe = ?", tribe).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

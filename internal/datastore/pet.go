package datastore

import (
	"context"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePet(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Pet)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Pet)(nil)).Index("index_pet_user_id").IfNotExists().Unique().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Pet)(nil)).Index("index_pet_tribe").IfNotExists().Column("tribe").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreatePet(ctx context.Context, db *bun.DB, pet *models.Pet) (*models.Pet, error) {
	_, err := db.NewInsert().Model(pet).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return pet, nil
}

func FindPetByID(ctx context.Context, db *bun.DB, petID int64) (*models.Pet, error) {
	var pet models.Pet
	err := db.NewSelect().Model(&pet).Where("id = ?", petID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func FindPetByUserID(ctx context.Context, db *bun.DB, userID int64) (*models.Pet, error) {
	var pet models.Pet
	err := db.NewSelect().Model(&pet).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func UpdatePet(ctx context.Context, db bun.IDB, pet *models.Pet) (*models.Pet, error) {
	pet.UpdatedAt = time.Now()
	_, err := db.NewUpdate().Model(pet).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}

	return pet, nil
}

func AddPetPower(ctx context.Context, db *bun.DB, petID int64, gained int64) error {
	_, err := db.NewUpdate().
		Model((*models.Pet)(nil)).
		Set("power = power + ?", gained).
		Where("id = ?", petID).
		Exec(ctx)
	return err
}

// SumTribePower feeds the power dimension of the weekly tribe score.
func SumTribePower(ctx context.Context, db *bun.DB, tribe models.Tribe) (int64, error) {
	var total int64
	err := db.NewSelect().
		ColumnExpr("COALESCE(SUM(power), 0)").
		Model((*models.Pet)(nil)).
		Where("tribe = ?", tribe).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

func SumTribeCareStreak(ctx context.Context, db *bun.DB, tribe models.Tribe) (int64, error) {
	var total int64
	err := db.NewSelect().
		ColumnExpr("COALESCE(SUM(care_streak), 0)").
		Model((*models.Pet)(nil)).
		Where("tribe = ?", tribe).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

package datastore

import (
	"context"
	"strings"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_username").IfNotExists().Column("username").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindUserByID(ctx context.Context, db *bun.DB, userID int64) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func CreateUser(ctx context.Context, db *bun.DB, user *models.User) (*models.User, error) {
	_, err := db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// if the user is not found, return nil
func FindUserByUsername(ctx context.Context, db *bun.DB, username string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("username = ?", strings.ToLower(username)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func UpdateUserProfile(ctx context.Context, db *bun.DB, user *models.User) (*models.User, error) {
	_, err := db.NewUpdate().Model(user).
		Set("username = ?", user.Username).
		Set("first_name = ?", user.FirstName).
		Set("last_name = ?", user.LastName).
		Set("photo_url = ?", user.PhotoURL).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func GetUserIDsByTribe(ctx context.Context, db *bun.DB, tribe models.Tribe) ([]int64, error) {
	var ids []int64
	err := db.NewSelect().Model((*models.Pet)(nil)).Column("user_id").Where("tribe = ?", tribe).Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

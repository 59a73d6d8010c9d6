package datastore

import (
	"context"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUserWallet(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserWallet)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserWallet)(nil)).Index("index_user_wallet_ton").Unique().IfNotExists().Column("ton_wallet").Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func FindUserWalletByUserID(ctx context.Context, db *bun.DB, userID int64) (*models.UserWallet, error) {
	var userWallet models.UserWallet
	err := db.NewSelect().Model(&userWallet).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &userWallet, nil
}

func FindUserWalletByTONAddress(ctx context.Context, db *bun.DB, address string) (*models.UserWallet, error) {
	var userWallet models.UserWallet
	err := db.NewSelect().Model(&userWallet).Where("ton_wallet = ?", address).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &userWallet, nil
}

func CreateUserWallet(ctx context.Context, db *bun.DB, userWallet *models.UserWallet) (*models.UserWallet, error) {
	_, err := db.NewInsert().Model(userWallet).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return userWallet, nil
}

func UpdateUserWallet(ctx context.Context, db *bun.DB, userWallet *models.UserWallet) (*models.UserWallet, error) {
	_, err := db.NewUpdate().Model(userWallet).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}
	return userWallet, nil
}

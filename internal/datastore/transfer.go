package datastore

import (
	"context"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableTokenTransfer(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.TokenTransfer)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.TokenTransfer)(nil)).Index("index_token_transfer_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// ReserveTransfer records a chain signature as consumed. The primary key on
// signature turns a double spend into a zero-row insert, which the caller
// reports as a conflict.
func ReserveTransfer(ctx context.Context, db bun.IDB, transfer *models.TokenTransfer) (bool, error) {
	res, err := db.NewInsert().
		Model(transfer).
		On("CONFLICT (signature) DO NOTHING").
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

func FindTransferBySignature(ctx context.Context, db *bun.DB, signature string) (*models.TokenTransfer, error) {
	var transfer models.TokenTransfer
	err := db.NewSelect().Model(&transfer).Where("signature = ?", signature).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func GetTransfersByUserID(ctx context.Context, db *bun.DB, userID int64, limit int, offset int) ([]*models.TokenTransfer, error) {
	var transfers []*models.TokenTransfer
	err := db.NewSelect().
		Model(&transfers).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

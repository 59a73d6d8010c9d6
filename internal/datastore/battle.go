package datastore

import (
	"context"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableBattle(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Battle)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Battle)(nil)).Index("index_battle_challenger_id").IfNotExists().Column("challenger_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Battle)(nil)).Index("index_battle_status").IfNotExists().Column("status").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateBattle(ctx context.Context, db bun.IDB, battle *models.Battle) (*models.Battle, error) {
	_, err := db.NewInsert().Model(battle).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return battle, nil
}

func FindBattleByID(ctx context.Context, db bun.IDB, battleID string) (*models.Battle, error) {
	var battle models.Battle
	err := db.NewSelect().Model(&battle).Where("id = ?", battleID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &battle, nil
}

func GetOpenBattles(ctx context.Context, db *bun.DB, excludeUserID int64, limit int) ([]*models.Battle, error) {
	var battles []*models.Battle
	err := db.NewSelect().
		Model(&battles).
		Where("status = ?", models.BattleStatusPending).
		Where("challenger_id != ?", excludeUserID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return battles, nil
}

func GetBattlesByUserID(ctx context.Context, db *bun.DB, userID int64, limit int, offset int) ([]*models.Battle, error) {
	var battles []*models.Battle
	err := db.NewSelect().
		Model(&battles).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("challenger_id = ?", userID).WhereOr("defender_id = ?", userID)
		}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return battles, nil
}

// SettleBattle moves a battle out of PENDING exactly once. The status guard
// makes a second settle or a concurrent cancel a no-op.
func SettleBattle(ctx context.Context, db bun.IDB, battle *models.Battle) (bool, error) {
	now := time.Now()
	battle.SettledAt = &now
	battle.UpdatedAt = now
	res, err := db.NewUpdate().
		Model(battle).
		Column("status", "defender_id", "defender_pet_id", "defender_power", "defender_bet", "defender_tx", "winner_id", "winner_pet_id", "prize_pool", "burned_amount", "replay", "settled_at", "updated_at").
		WherePK().
		Where("status = ?", models.BattleStatusPending).
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

func CancelBattle(ctx context.Context, db bun.IDB, battleID string, challengerID int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.Battle)(nil)).
		Set("status = ?", models.BattleStatusCancelled).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", battleID).
		Where("challenger_id = ?", challengerID).
		Where("status = ?", models.BattleStatusPending).
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

func CountBattleWinsByTribe(ctx context.Context, db *bun.DB, tribe models.Tribe, from time.Time, to time.Time) (int64, error) {
	var total int64
	err := db.NewSelect().
		ColumnExpr("COUNT(b.id)").
		TableExpr("battle AS b").
		Join("JOIN pet AS p ON p.id = b.winner_pet_id").
		Where("p.tribe = ?", tribe).
		Where("b.status = ?", models.BattleStatusCompleted).
		Where("b.settled_at >= ?", from).
		Where("b.settled_at < ?", to).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

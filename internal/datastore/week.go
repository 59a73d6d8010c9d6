package datastore

import (
	"context"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableWeek(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Week)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Week)(nil)).Index("index_week_number_year").IfNotExists().Unique().Column("number", "year").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableTribeScore(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.TribeScore)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.TribeScore)(nil)).Index("index_tribe_score_week_id_tribe").IfNotExists().Unique().Column("week_id", "tribe").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableTribeBadge(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.TribeBadge)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.TribeBadge)(nil)).Index("index_tribe_badge_user_id_week_id").IfNotExists().Unique().Column("user_id", "week_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateWeek(ctx context.Context, db bun.IDB, week *models.Week) (*models.Week, error) {
	_, err := db.NewInsert().Model(week).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return week, nil
}

func FindActiveWeek(ctx context.Context, db bun.IDB) (*models.Week, error) {
	var week models.Week
	err := db.NewSelect().
		Model(&week).
		Where("is_active = ?", true).
		Order("starts_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &week, nil
}

func FindWeekByID(ctx context.Context, db *bun.DB, weekID int64) (*models.Week, error) {
	var week models.Week
	err := db.NewSelect().Model(&week).Where("id = ?", weekID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &week, nil
}

// CloseWeek freezes a week and stamps the winner. The is_active guard keeps a
// double rollover from re-closing an already frozen week.
func CloseWeek(ctx context.Context, db bun.IDB, weekID int64, winner *models.Tribe) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.Week)(nil)).
		Set("is_active = ?", false).
		Set("winner_tribe = ?", winner).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", weekID).
		Where("is_active = ?", true).
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

func UpsertTribeScore(ctx context.Context, db bun.IDB, score *models.TribeScore) error {
	score.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(score).
		On("CONFLICT (week_id, tribe) DO UPDATE").
		Set("activity = EXCLUDED.activity").
		Set("social = EXCLUDED.social").
		Set("consistency = EXCLUDED.consistency").
		Set("event = EXCLUDED.event").
		Set("power = EXCLUDED.power").
		Set("total = EXCLUDED.total").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func GetTribeScoresByWeekID(ctx context.Context, db bun.IDB, weekID int64) ([]*models.TribeScore, error) {
	var scores []*models.TribeScore
	err := db.NewSelect().
		Model(&scores).
		Where("week_id = ?", weekID).
		Order("total DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func CreateTribeBadges(ctx context.Context, db bun.IDB, badges []*models.TribeBadge) error {
	if len(badges) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&badges).
		On("CONFLICT (user_id, week_id) DO NOTHING").
		Exec(ctx)
	return err
}

func GetBadgesByUserID(ctx context.Context, db *bun.DB, userID int64) ([]*models.TribeBadge, error) {
	var badges []*models.TribeBadge
	err := db.NewSelect().
		Model(&badges).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return badges, nil
}

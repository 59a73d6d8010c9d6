package datastore

import (
	"context"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableBossRaid(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.BossRaid)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.BossRaid)(nil)).Index("index_boss_raid_week_id").IfNotExists().Column("week_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableRaidParticipant(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RaidParticipant)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RaidParticipant)(nil)).Index("index_raid_participant_raid_id_user_id").IfNotExists().Unique().Column("raid_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateBossRaid(ctx context.Context, db *bun.DB, raid *models.BossRaid) (*models.BossRaid, error) {
	_, err := db.NewInsert().Model(raid).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return raid, nil
}

func FindRaidByID(ctx context.Context, db bun.IDB, raidID int64) (*models.BossRaid, error) {
	var raid models.BossRaid
	err := db.NewSelect().Model(&raid).Where("id = ?", raidID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &raid, nil
}

func FindActiveRaid(ctx context.Context, db *bun.DB) (*models.BossRaid, error) {
	var raid models.BossRaid
	err := db.NewSelect().
		Model(&raid).
		Where("status = ?", models.RaidStatusActive).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &raid, nil
}

func AddRaidRewardPool(ctx context.Context, db bun.IDB, raidID int64, amount int64) error {
	_, err := db.NewUpdate().
		Model((*models.BossRaid)(nil)).
		Set("reward_pool = reward_pool + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", raidID).
		Exec(ctx)
	return err
}

// DecrementRaidHP is the contested write of an attack. It only lands when the
// boss HP still matches what the caller read, so two concurrent attacks can
// never both claim the same HP. Callers re-read and retry on a miss.
func DecrementRaidHP(ctx context.Context, db bun.IDB, raidID int64, lastSeenHP int64, newHP int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.BossRaid)(nil)).
		Set("hp_current = ?", newHP).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", raidID).
		Where("hp_current = ?", lastSeenHP).
		Where("status = ?", models.RaidStatusActive).
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

func MarkRaidDefeated(ctx context.Context, db bun.IDB, raidID int64) (bool, error) {
	now := time.Now()
	res, err := db.NewUpdate().
		Model((*models.BossRaid)(nil)).
		Set("status = ?", models.RaidStatusDefeated).
		Set("defeated_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", raidID).
		Where("status = ?", models.RaidStatusActive).
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

func MarkRaidExpired(ctx context.Context, db *bun.DB, raidID int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.BossRaid)(nil)).
		Set("status = ?", models.RaidStatusExpired).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", raidID).
		Where("status = ?", models.RaidStatusActive).
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

func SetRaidRewardRemainder(ctx context.Context, db bun.IDB, raidID int64, remainder int64) error {
	_, err := db.NewUpdate().
		Model((*models.BossRaid)(nil)).
		Set("reward_remainder = ?", remainder).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", raidID).
		Exec(ctx)
	return err
}

func CreateRaidParticipant(ctx context.Context, db bun.IDB, participant *models.RaidParticipant) (bool, error) {
	res, err := db.NewInsert().
		Model(participant).
		On("CONFLICT (raid_id, user_id) DO NOTHING").
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

func FindRaidParticipant(ctx context.Context, db bun.IDB, raidID int64, userID int64) (*models.RaidParticipant, error) {
	var participant models.RaidParticipant
	err := db.NewSelect().
		Model(&participant).
		Where("raid_id = ?", raidID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func RecordRaidDamage(ctx context.Context, db bun.IDB, raidID int64, userID int64, damage int64, killingBlow bool) error {
	now := time.Now()
	q := db.NewUpdate().
		Model((*models.RaidParticipant)(nil)).
		Set("total_damage = total_damage + ?", damage).
		Set("attack_count = attack_count + 1").
		Set("last_attack_at = ?", now).
		Set("updated_at = ?", now).
		Where("raid_id = ?", raidID).
		Where("user_id = ?", userID)
	if killingBlow {
		q = q.Set("is_killing_blow = ?", true)
	}
	_, err := q.Exec(ctx)
	return err
}

// GetRaidParticipants orders by damage with the earlier attacker winning
// ties, which fixes the top-10 cut deterministically.
func GetRaidParticipants(ctx context.Context, db bun.IDB, raidID int64) ([]*models.RaidParticipant, error) {
	var participants []*models.RaidParticipant
	err := db.NewSelect().
		Model(&participants).
		Where("raid_id = ?", raidID).
		Order("total_damage DESC").
		Order("last_attack_at ASC").
		Order("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// ClaimRaidReward flips the claimed flag gated on it being unset. A repeated
// claim finds zero rows and reports the conflict to the caller.
func ClaimRaidReward(ctx context.Context, db bun.IDB, raidID int64, userID int64, paid int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.RaidParticipant)(nil)).
		Set("reward_claimed = ?", true).
		Set("reward_paid = ?", paid).
		Set("updated_at = ?", time.Now()).
		Where("raid_id = ?", raidID).
		Where("user_id = ?", userID).
		Where("reward_claimed = ?", false).
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

func SumRaidDamageByTribe(ctx context.Context, db *bun.DB, tribe models.Tribe, from time.Time, to time.Time) (int64, error) {
	var total int64
	err := db.NewSelect().
		ColumnExpr("COALESCE(SUM(rp.total_damage), 0)").
		TableExpr("raid_participant AS rp").
		Join("JOIN pet AS p ON p.user_id = rp.user_id").
		Where("p.tribe = ?", tribe).
		Where("rp.created_at >= ?", from).
		Where("rp.created_at < ?", to).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

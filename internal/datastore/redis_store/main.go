package redis_store

import (
	"fmt"
	"strconv"
	"time"

	"context"

	"sippets/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	REPLAY_CACHE_TTL   = 7 * 24 * time.Hour
	COOLDOWN_KEY_SLACK = time.Minute
)

func dbKeyRaidDamage(raidID int64) string {
	return fmt.Sprintf("raid:%d:damage", raidID)
}

func dbKeyTribeLeaderboard(weekID int64) string {
	return fmt.Sprintf("week:%d:tribe_leaderboard", weekID)
}

func dbKeyPowerLeaderboard() string {
	return "leaderboard:power"
}

func dbKeyBattleReplay(battleID string) string {
	return fmt.Sprintf("battle:%s:replay", battleID)
}

func dbKeyAttackCooldown(raidID int64, userID int64) string {
	return fmt.Sprintf("raid:%d:cooldown:%d", raidID, userID)
}

func dbKeyUserLastNotify(userID int64) string {
	return fmt.Sprintf("user:%d:last_notify", userID)
}

// AddRaidDamage keeps a display-only running total per attacker. It also
// counts damage dealt after the boss hit zero, which the settlement totals in
// Postgres deliberately do not.
func AddRaidDamage(ctx context.Context, cmd redis.Cmdable, raidID int64, userID int64, damage int64) error {
	return cmd.ZIncrBy(ctx, dbKeyRaidDamage(raidID), float64(damage), strconv.FormatInt(userID, 10)).Err()
}

func GetRaidDamageLeaderboard(ctx context.Context, cmd redis.Cmdable, raidID int64, num int) ([]*models.LeaderboardItem, error) {
	items, err := cmd.ZRevRangeWithScores(ctx, dbKeyRaidDamage(raidID), 0, int64(num-1)).Result()
	if err != nil {
		return nil, err
	}

	var results []*models.LeaderboardItem
	for i, item := range items {
		id, _ := strconv.ParseInt(item.Member.(string), 10, 64)
		results = append(results, &models.LeaderboardItem{
			UserId: id,
			Score:  item.Score,
			Rank:   i + 1,
		})
	}

	return results, nil
}

func GetRaidDamageRank(ctx context.Context, cmd redis.Cmdable, raidID int64, userID int64) (int64, error) {
	rank, err := cmd.ZRevRank(ctx, dbKeyRaidDamage(raidID), strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		return -1, err
	}

	return rank, nil
}

func GetRaidDamageScore(ctx context.Context, cmd redis.Cmdable, raidID int64, userID int64) (float64, error) {
	return cmd.ZScore(ctx, dbKeyRaidDamage(raidID), strconv.FormatInt(userID, 10)).Result()
}

func ClearRaidDamage(ctx context.Context, cmd redis.Cmdable, raidID int64) error {
	return cmd.Del(ctx, dbKeyRaidDamage(raidID)).Err()
}

func SetTribeScore(ctx context.Context, cmd redis.Cmdable, weekID int64, tribe models.Tribe, total int64) error {
	return cmd.ZAdd(ctx, dbKeyTribeLeaderboard(weekID), redis.Z{
		Score:  float64(total),
		Member: string(tribe),
	}).Err()
}

func GetTribeLeaderboard(ctx context.Context, cmd redis.Cmdable, weekID int64) ([]*models.TribeStanding, error) {
	items, err := cmd.ZRevRangeWithScores(ctx, dbKeyTribeLeaderboard(weekID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var results []*models.TribeStanding
	for i, item := range items {
		results = append(results, &models.TribeStanding{
			Tribe: models.Tribe(item.Member.(string)),
			Total: int64(item.Score),
			Rank:  i + 1,
		})
	}

	return results, nil
}

func SetPowerScore(ctx context.Context, cmd redis.Cmdable, userID int64, power int64) error {
	return cmd.ZAdd(ctx, dbKeyPowerLeaderboard(), redis.Z{
		Score:  float64(power),
		Member: strconv.FormatInt(userID, 10),
	}).Err()
}

func GetPowerLeaderboard(ctx context.Context, cmd redis.Cmdable, num int) ([]*models.LeaderboardItem, error) {
	items, err := cmd.ZRevRangeWithScores(ctx, dbKeyPowerLeaderboard(), 0, int64(num-1)).Result()
	if err != nil {
		return nil, err
	}

	var results []*models.LeaderboardItem
	for i, item := range items {
		id, _ := strconv.ParseInt(item.Member.(string), 10, 64)
		results = append(results, &models.LeaderboardItem{
			UserId: id,
			Score:  item.Score,
			Rank:   i + 1,
		})
	}

	return results, nil
}

func GetPowerScore(ctx context.Context, cmd redis.Cmdable, userID int64) (float64, error) {
	return cmd.ZScore(ctx, dbKeyPowerLeaderboard(), strconv.FormatInt(userID, 10)).Result()
}

func GetPowerRank(ctx context.Context, cmd redis.Cmdable, userID int64) (int64, error) {
	rank, err := cmd.ZRevRank(ctx, dbKeyPowerLeaderboard(), strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		return -1, err
	}

	return rank, nil
}

func SaveBattleReplay(ctx context.Context, cmd redis.Cmdable, battleID string, frames []models.ReplayFrame) error {
	b, err := msgpack.Marshal(frames)
	if err != nil {
		return err
	}

	return cmd.Set(ctx, dbKeyBattleReplay(battleID), b, REPLAY_CACHE_TTL).Err()
}

func GetBattleReplay(ctx context.Context, cmd redis.Cmdable, battleID string) ([]models.ReplayFrame, error) {
	var frames []models.ReplayFrame
	b, err := cmd.Get(ctx, dbKeyBattleReplay(battleID)).Bytes()
	if err != nil {
		return nil, err
	}

	err = msgpack.Unmarshal(b, &frames)
	return frames, err
}

// SetAttackCooldown writes the cooldown marker with NX semantics so the
// moment of first write wins under concurrent attacks.
func SetAttackCooldown(ctx context.Context, cmd redis.Cmdable, raidID int64, userID int64, cooldown time.Duration) (bool, error) {
	return cmd.SetNX(ctx, dbKeyAttackCooldown(raidID, userID), true, cooldown+COOLDOWN_KEY_SLACK).Result()
}

func GetAttackCooldownTTL(ctx context.Context, cmd redis.Cmdable, raidID int64, userID int64) (time.Duration, error) {
	ttl, err := cmd.TTL(ctx, dbKeyAttackCooldown(raidID, userID)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}

func SetUserLastNotify(ctx context.Context, cmd redis.Cmdable, userID int64, lastNotify time.Time) error {
	return cmd.Set(ctx, dbKeyUserLastNotify(userID), lastNotify.Format(time.RFC3339), 0).Err()
}

func GetUserLastNotify(ctx context.Context, cmd redis.Cmdable, userID int64) (time.Time, error) {
	result, err := cmd.Get(ctx, dbKeyUserLastNotify(userID)).Result()
	if err != nil {
		return time.Time{}, err
	}

	return time.Parse(time.RFC3339, result)
}

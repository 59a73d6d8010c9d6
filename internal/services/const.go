package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrBattleLock = errors.New("battle locked")
var ErrRaidLock = errors.New("raid locked")
var ErrPetLock = errors.New("pet locked")
var ErrWeekRolloverLock = errors.New("week rollover locked")

const (
	CONFIG_SERVER_MODE              = "SERVER_MODE"
	CONFIG_POWER_LEADERBOARD_LIMIT  = "POWER_LEADERBOARD_LIMIT"
	CONFIG_RAID_LEADERBOARD_LIMIT   = "RAID_LEADERBOARD_LIMIT"
	CONFIG_MIN_BATTLE_BET           = "MIN_BATTLE_BET"
	CONFIG_MAX_BATTLE_BET           = "MAX_BATTLE_BET"
	CONFIG_RAID_ENTRY_FEE           = "RAID_ENTRY_FEE"
	CONFIG_RAID_BOSS_HP             = "RAID_BOSS_HP"
	CONFIG_RAID_DURATION_HOURS      = "RAID_DURATION_HOURS"
	CONFIG_ATTACK_COOLDOWN_MINUTES  = "ATTACK_COOLDOWN_MINUTES"
	CONFIG_TEXT_NEW_USER            = "TEXT_NEW_USER"
	CONFIG_SIP_TREASURY_ADDRESS     = "SIP_TREASURY_ADDRESS"
	CONFIG_SKILL_FEED_GATE          = "SKILL_FEED_GATE"
	CONFIG_CRONJOB_TIME_WEEK_CLOSE  = "CRONJOB_TIME_WEEK_CLOSE"
	CONFIG_CRONJOB_TIME_RAID_SPAWN  = "CRONJOB_TIME_RAID_SPAWN"
	CONFIG_CRONJOB_TIME_TRIBE_SCORE = "CRONJOB_TIME_TRIBE_SCORE"

	SERVER_MODE_DEVELOPMENT = "development"
	SERVER_MODE_STAGING     = "staging"
	SERVER_MODE_PRODUCTION  = "production"

	// fraction of the stake retained per neglected day, in basis points
	NEGLECT_KEEP_RATE_BPS = 9500

	POWER_LEADERBOARD_DEFAULT_LIMIT = 20
	RAID_LEADERBOARD_DEFAULT_LIMIT  = 20

	BATTLE_BURN_RATE_BPS       = 1000
	BATTLE_LUCK_SHIFT_BPS      = 1500
	BATTLE_WIN_PROB_FLOOR_BPS  = 2000
	BATTLE_WIN_PROB_CEIL_BPS   = 8000
	BATTLE_MAX_REPLAY_ROUNDS   = 40
	DEFAULT_MIN_BATTLE_BET     = 100
	DEFAULT_MAX_BATTLE_BET     = 100000
	BATTLE_RATE_LIMIT_PER_MIN  = 10
	BATTLE_OPEN_LIST_LIMIT     = 50
	BATTLE_CRIT_CHANCE_BASE    = 0.10
	BATTLE_DODGE_CHANCE_BASE   = 0.05
	BATTLE_CRIT_MULTIPLIER     = 2
	BATTLE_BASE_DAMAGE_DIVISOR = 10

	RAID_SHARE_DAMAGE_BPS       = 7000
	RAID_SHARE_TOP_BPS          = 2000
	RAID_SHARE_KILLING_BLOW_BPS = 1000
	RAID_TOP_REWARDED           = 10
	DEFAULT_RAID_ENTRY_FEE      = 500
	DEFAULT_RAID_BOSS_HP        = 1000000
	DEFAULT_RAID_DURATION       = 72 * time.Hour
	DEFAULT_ATTACK_COOLDOWN     = time.Hour
	RAID_HP_CAS_MAX_RETRIES     = 5
	RAID_DAMAGE_MULTIPLIER      = 10
	RAID_CRIT_MULTIPLIER        = 2

	SKILL_FEED_GATE_DEFAULT = 10000

	FEED_SIP_PER_POWER = 100

	CACHE_TTL_5_SECONDS  = 5 * time.Second
	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_1_MIN      = 1 * time.Minute
	CACHE_TTL_5_MINS     = 5 * time.Minute
	CACHE_TTL_15_MINS    = 15 * time.Minute
	CACHE_TTL_30_MINS    = 30 * time.Minute
	CACHE_TTL_1_HOUR     = 1 * time.Hour
	CACHE_TTL_1_DAY      = 24 * time.Hour

	TELEGRAM_API_BASE_URL = "https://api.telegram.org"
)

func LockKeyBattle(battleID string) string {
	return fmt.Sprintf("lock:battle:%s", battleID)
}

func LockKeyRaidAttack(raidID int64, userID int64) string {
	return fmt.Sprintf("lock:raid-attack:%d:%d", raidID, userID)
}

func LockKeyRaidClaim(raidID int64, userID int64) string {
	return fmt.Sprintf("lock:raid-claim:%d:%d", raidID, userID)
}

func LockKeyUserPet(userID int64) string {
	return fmt.Sprintf("lock:user-pet:%d", userID)
}

func LockKeyWeekRollover() string {
	return "lock:week-rollover"
}

func LockKeyRaidSpawn() string {
	return "lock:raid-spawn"
}

// db
func DBKeyUser(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyActiveRaid() string {
	return "raid:active"
}

func DBKeyUserWallet(userID int64) string {
	return fmt.Sprintf("user_wallet:%d", userID)
}

func DBKeyPowerLeaderboardByUser(userID int64, limit int) string {
	return fmt.Sprintf("leaderboard_by_user:power:%d:%d", userID, limit)
}

func DBKeyRaidLeaderboardByUser(raidID int64, userID int64, limit int) string {
	return fmt.Sprintf("leaderboard_by_user:raid:%d:%d:%d", raidID, userID, limit)
}

func LimitKeyBattleCreate(userID int64) string {
	return fmt.Sprintf("limit:battle-create:%d", userID)
}

func LimitKeyPetAction(userID int64) string {
	return fmt.Sprintf("limit:pet-action:%d", userID)
}

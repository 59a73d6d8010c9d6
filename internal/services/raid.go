package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"sippets/internal/datastore"
	"sippets/internal/datastore/redis_store"
	"sippets/internal/models"
	"sippets/internal/pkg/caching"
	"sippets/internal/pkg/gacha"
	"sippets/internal/pkg/ledger"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/mroth/weightedrand/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

var (
	ErrRaidNotActive   = errors.New("raid is not active")
	ErrRaidContention  = errors.New("raid state changed, try again")
	ErrAlreadyJoined   = errors.New("already joined this raid")
	ErrNotJoined       = errors.New("join the raid before attacking")
	ErrAttackCooldown  = errors.New("attack cooldown not elapsed")
	ErrRaidNotDefeated = errors.New("raid is not defeated yet")
	ErrRewardClaimed   = errors.New("reward already claimed")
	ErrNoRewardDue     = errors.New("no reward due")
)

type bossPick struct {
	Name    string
	Element string
}

type ServiceRaid struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	rng                gacha.RNG

	serviceConfig *ServiceConfig
	serviceSkill  *ServiceSkill
	verifier      TransferVerifier
	bot           *Bot
	bossGacha     *ServiceGacha[bossPick]
}

func NewServiceRaid(container *do.Injector) (*ServiceRaid, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	rng, err := do.Invoke[gacha.RNG](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	serviceSkill, err := do.Invoke[*ServiceSkill](container)
	if err != nil {
		return nil, err
	}

	verifier, err := do.Invoke[TransferVerifier](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	bossGacha, err := NewServiceGacha([]weightedrand.Choice[bossPick, int]{
		weightedrand.NewChoice(bossPick{"Gorgomoth", "fire"}, 30),
		weightedrand.NewChoice(bossPick{"Abyssal Maw", "water"}, 30),
		weightedrand.NewChoice(bossPick{"Thornback", "earth"}, 25),
		weightedrand.NewChoice(bossPick{"Void Siphon", "shadow"}, 15),
	})
	if err != nil {
		return nil, err
	}

	return &ServiceRaid{container, redisDB, rs, postgresDB, readonlyPostgresDB, cache, rng, serviceConfig, serviceSkill, verifier, bot, bossGacha}, nil
}

// Spawn creates the week's boss. The boss identity is a cosmetic weighted
// pick; HP and fee come from config.
func (service *ServiceRaid) Spawn(ctx context.Context, weekID int64) (*models.BossRaid, error) {
	mutex := service.rs.NewMutex(LockKeyRaidSpawn())
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrRaidLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	existing, err := datastore.FindActiveRaid(ctx, service.readonlyPostgresDB)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if existing != nil {
		return existing, nil
	}

	hp, _ := service.serviceConfig.GetInt64Config(ctx, CONFIG_RAID_BOSS_HP, DEFAULT_RAID_BOSS_HP)
	fee, _ := service.serviceConfig.GetInt64Config(ctx, CONFIG_RAID_ENTRY_FEE, DEFAULT_RAID_ENTRY_FEE)
	boss := service.bossGacha.Pick()

	raid := &models.BossRaid{
		WeekID:    weekID,
		BossName:  boss.Name,
		Element:   boss.Element,
		HPMax:     hp,
		HPCurrent: hp,
		EntryFee:  fee,
		Status:    models.RaidStatusActive,
		CreatedAt: time.Now(),
	}

	raid, err = datastore.CreateBossRaid(ctx, service.postgresDB, raid)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	log.Println("Raid spawned:", "raid:", raid.ID, "boss:", raid.BossName, "hp:", raid.HPMax)
	return raid, nil
}

func (service *ServiceRaid) ActiveRaid(ctx context.Context) (*models.BossRaid, error) {
	callback := func() (*models.BossRaid, error) {
		return datastore.FindActiveRaid(ctx, service.readonlyPostgresDB)
	}
	raid, err := caching.UseCacheWithRO(ctx, service.cache, service.cache, DBKeyActiveRaid(), CACHE_TTL_15_SECONDS, callback)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("no active raid"), errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return raid, nil
}

func (service *ServiceRaid) Join(ctx context.Context, user *models.User, petID int64, txSignature string) (*models.RaidParticipant, error) {
	raid, err := datastore.FindActiveRaid(ctx, service.readonlyPostgresDB)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrRaidNotActive, errorx.Invalid)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	pet, err := datastore.FindPetByID(ctx, service.readonlyPostgresDB, petID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("pet not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if pet.UserID != user.ID {
		return nil, errorx.Wrap(errors.New("not your pet"), errorx.Validation)
	}
	if pet.Neglected(time.Now()) {
		return nil, errorx.Wrap(errors.New("pet is neglected, care for it first"), errorx.Validation)
	}

	verified, err := service.verifier.VerifyTransfer(ctx, txSignature, service.senderWallet(ctx, user.ID))
	if err != nil {
		return nil, err
	}
	if !verified.Valid {
		return nil, errorx.Wrap(ErrTransferInvalid, errorx.Validation)
	}
	if !ledger.WithinTolerance(raid.EntryFee, verified.Amount, betToleranceBps) {
		return nil, errorx.Wrap(fmt.Errorf("entry fee is %d, on-chain amount %d", raid.EntryFee, verified.Amount), errorx.Validation)
	}

	participant := &models.RaidParticipant{
		RaidID:         raid.ID,
		UserID:         user.ID,
		PetID:          pet.ID,
		SipContributed: raid.EntryFee,
		CreatedAt:      time.Now(),
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reserved, err := datastore.ReserveTransfer(ctx, tx, &models.TokenTransfer{
			Signature: txSignature,
			UserID:    user.ID,
			Amount:    verified.Amount,
			Purpose:   models.TransferPurposeRaidJoin,
		})
		if err != nil {
			return err
		}
		if !reserved {
			return ErrSignatureUsed
		}

		created, err := datastore.CreateRaidParticipant(ctx, tx, participant)
		if err != nil {
			return err
		}
		if !created {
			return ErrAlreadyJoined
		}

		return datastore.AddRaidRewardPool(ctx, tx, raid.ID, raid.EntryFee)
	})
	if err != nil {
		if errors.Is(err, ErrSignatureUsed) || errors.Is(err, ErrAlreadyJoined) {
			return nil, errorx.Wrap(err, errorx.Invalid)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return participant, nil
}

func (service *ServiceRaid) senderWallet(ctx context.Context, userID int64) string {
	wallet, err := datastore.FindUserWalletByUserID(ctx, service.readonlyPostgresDB, userID)
	if err != nil || wallet == nil || wallet.TONWallet == nil {
		return ""
	}
	return *wallet.TONWallet
}

// raidStillContested separates pure CAS contention, where the attack must be
// retried by the caller, from a boss that actually went down mid-flight.
func raidStillContested(raid *models.BossRaid) bool {
	return raid.Status == models.RaidStatusActive && raid.HPCurrent > 0
}

// rollDamage is the raw roll before HP clamping.
func rollDamage(rng gacha.RNG, pet *models.Pet, effects models.CombatEffects) (int64, bool) {
	crit := rng.Float64() < BATTLE_CRIT_CHANCE_BASE+effects.CritChance
	damage := float64(pet.Power) * RAID_DAMAGE_MULTIPLIER * (1 + effects.DamageBoost + pet.Tribe.RaidBonus())
	if crit {
		damage *= RAID_CRIT_MULTIPLIER
	}
	return int64(damage), crit
}

// Attack rolls damage once and applies it through a compare-and-swap on the
// last seen HP, so concurrent attackers never double-count the pool. The
// attacker whose decrement lands HP on exactly zero gets the killing blow and
// flips the raid to DEFEATED in the same transaction. Attacks that lose every
// CAS round because the boss died mid-flight are kept for the display
// leaderboard with zero applied damage; losing every round against a live
// boss is a contention error and consumes neither cooldown nor attack count.
func (service *ServiceRaid) Attack(ctx context.Context, user *models.User) (*models.RaidAttackResult, error) {
	raid, err := datastore.FindActiveRaid(ctx, service.readonlyPostgresDB)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrRaidNotActive, errorx.Invalid)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	mutex := service.rs.NewMutex(LockKeyRaidAttack(raid.ID, user.ID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrRaidLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	participant, err := datastore.FindRaidParticipant(ctx, service.readonlyPostgresDB, raid.ID, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrNotJoined, errorx.Validation)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	cooldownMinutes, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_ATTACK_COOLDOWN_MINUTES, int(DEFAULT_ATTACK_COOLDOWN/time.Minute))
	cooldown := time.Duration(cooldownMinutes) * time.Minute
	if ttl, err := redis_store.GetAttackCooldownTTL(ctx, service.redisDB, raid.ID, user.ID); err == nil && ttl > 0 {
		return nil, errorx.Wrap(ErrAttackCooldown, errorx.RateLimiting)
	}
	// last_attack_at backs the redis marker across a cache flush
	if participant.LastAttackAt != nil && time.Since(*participant.LastAttackAt) < cooldown {
		return nil, errorx.Wrap(ErrAttackCooldown, errorx.RateLimiting)
	}

	pet, err := datastore.FindPetByID(ctx, service.readonlyPostgresDB, participant.PetID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	effects, _, err := service.serviceSkill.EffectsFor(ctx, pet.ID)
	if err != nil {
		return nil, err
	}

	// one roll per attack; retries below re-apply the same damage
	damage, crit := rollDamage(service.rng, pet, effects)

	result := &models.RaidAttackResult{Damage: damage, Crit: crit}

	for attempt := 0; attempt < RAID_HP_CAS_MAX_RETRIES; attempt++ {
		lastSeen := raid.HPCurrent
		applied := damage
		if applied > lastSeen {
			applied = lastSeen
		}
		newHP := lastSeen - applied
		killingBlow := newHP == 0 && applied > 0

		var swapped bool
		err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			swapped, err = datastore.DecrementRaidHP(ctx, tx, raid.ID, lastSeen, newHP)
			if err != nil {
				return err
			}
			if !swapped {
				return nil
			}

			if err := datastore.RecordRaidDamage(ctx, tx, raid.ID, user.ID, applied, killingBlow); err != nil {
				return err
			}

			events := []*models.PetEvent{{
				UserID: user.ID,
				PetID:  pet.ID,
				Tribe:  pet.Tribe,
				Type:   models.EventRaidAttack,
				Value:  applied,
				Ref:    fmt.Sprintf("%d:%d:%d", raid.ID, user.ID, participant.AttackCount+1),
			}}

			if killingBlow {
				defeated, err := datastore.MarkRaidDefeated(ctx, tx, raid.ID)
				if err != nil {
					return err
				}
				if !defeated {
					// another killing blow landed between our CAS and this
					// update; impossible while the CAS guard holds
					return errors.New("raid defeat transition lost")
				}
				events = append(events, &models.PetEvent{
					UserID: user.ID,
					PetID:  pet.ID,
					Tribe:  pet.Tribe,
					Type:   models.EventRaidKillingBlow,
					Value:  1,
					Ref:    fmt.Sprintf("%d", raid.ID),
				})
			}

			return datastore.InsertPetEvents(ctx, tx, events)
		})
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}

		if swapped {
			result.AppliedDamage = applied
			result.HPRemaining = newHP
			result.KillingBlow = killingBlow

			if _, err := redis_store.SetAttackCooldown(ctx, service.redisDB, raid.ID, user.ID, cooldown); err != nil {
				log.Println("SetAttackCooldown:", err)
			}
			if err := redis_store.AddRaidDamage(ctx, service.redisDB, raid.ID, user.ID, damage); err != nil {
				log.Println("AddRaidDamage:", err)
			}
			_ = service.cache.Delete(ctx, DBKeyActiveRaid())

			if killingBlow {
				go service.notifyDefeated(raid, user.ID)
			}
			return result, nil
		}

		raid, err = datastore.FindRaidByID(ctx, service.readonlyPostgresDB, raid.ID)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		if raid.Status != models.RaidStatusActive || raid.HPCurrent == 0 {
			break
		}
	}

	// retries ran out against a live boss: nothing was recorded, so the
	// cooldown must not be consumed either
	if raidStillContested(raid) {
		return nil, errorx.Wrap(ErrRaidContention, errorx.Invalid)
	}

	// boss depleted under us: keep the attack on the books without touching HP
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return datastore.RecordRaidDamage(ctx, tx, raid.ID, user.ID, 0, false)
	})
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if _, err := redis_store.SetAttackCooldown(ctx, service.redisDB, raid.ID, user.ID, cooldown); err != nil {
		log.Println("SetAttackCooldown:", err)
	}
	if err := redis_store.AddRaidDamage(ctx, service.redisDB, raid.ID, user.ID, damage); err != nil {
		log.Println("AddRaidDamage:", err)
	}

	result.AppliedDamage = 0
	result.HPRemaining = 0
	return result, nil
}

func (service *ServiceRaid) notifyDefeated(raid *models.BossRaid, killerID int64) {
	notifyUser(context.Background(), service.redisDB, service.bot, killerID, fmt.Sprintf("🗡 Killing blow! %s is down. Claim your reward in the app.", raid.BossName))
}

// SplitRewards distributes the pool: 70% proportional to damage, 20% split
// evenly across the top 10 (participants come pre-ordered by damage with the
// earlier attacker winning ties), 10% to the killing blow. All floor
// division; the leftover is returned as the remainder, burned to treasury.
func SplitRewards(pool int64, participants []*models.RaidParticipant) (map[int64]int64, int64, error) {
	payouts := make(map[int64]int64, len(participants))
	if pool <= 0 || len(participants) == 0 {
		return payouts, pool, nil
	}

	var totalDamage int64
	for _, p := range participants {
		if p.TotalDamage < 0 {
			return nil, 0, fmt.Errorf("negative damage for user %d", p.UserID)
		}
		totalDamage += p.TotalDamage
	}

	damagePool, err := ledger.WinnerShare(pool, RAID_SHARE_DAMAGE_BPS)
	if err != nil {
		return nil, 0, err
	}
	topPool, err := ledger.WinnerShare(pool, RAID_SHARE_TOP_BPS)
	if err != nil {
		return nil, 0, err
	}
	killPool, err := ledger.WinnerShare(pool, RAID_SHARE_KILLING_BLOW_BPS)
	if err != nil {
		return nil, 0, err
	}

	var paid int64
	if totalDamage > 0 {
		for _, p := range participants {
			share := damagePool * p.TotalDamage / totalDamage
			payouts[p.UserID] += share
			paid += share
		}
	}

	topN := RAID_TOP_REWARDED
	if len(participants) < topN {
		topN = len(participants)
	}
	if topN > 0 {
		each := topPool / int64(topN)
		for _, p := range participants[:topN] {
			payouts[p.UserID] += each
			paid += each
		}
	}

	for _, p := range participants {
		if p.IsKillingBlow {
			payouts[p.UserID] += killPool
			paid += killPool
			break
		}
	}

	if paid > pool {
		return nil, 0, fmt.Errorf("split exceeds pool: paid %d of %d", paid, pool)
	}

	return payouts, pool - paid, nil
}

// Claim pays a participant exactly once. The reward_claimed flip is the
// idempotency gate; a second call is a conflict, never a second payout.
func (service *ServiceRaid) Claim(ctx context.Context, user *models.User, raidID int64) (int64, error) {
	mutex := service.rs.NewMutex(LockKeyRaidClaim(raidID, user.ID))
	if err := mutex.TryLock(); err != nil {
		return 0, errorx.Wrap(ErrRaidLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	raid, err := datastore.FindRaidByID(ctx, service.readonlyPostgresDB, raidID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errorx.Wrap(errors.New("raid not found"), errorx.NotExist)
	}
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}
	if raid.Status != models.RaidStatusDefeated {
		return 0, errorx.Wrap(ErrRaidNotDefeated, errorx.Invalid)
	}

	participants, err := datastore.GetRaidParticipants(ctx, service.readonlyPostgresDB, raid.ID)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}

	payouts, remainder, err := SplitRewards(raid.RewardPool, participants)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}

	due, ok := payouts[user.ID]
	if !ok {
		return 0, errorx.Wrap(ErrNotJoined, errorx.Validation)
	}
	if due == 0 {
		return 0, errorx.Wrap(ErrNoRewardDue, errorx.Validation)
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		claimed, err := datastore.ClaimRaidReward(ctx, tx, raid.ID, user.ID, due)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrRewardClaimed
		}

		// the split is deterministic, so every claim writes the same value
		return datastore.SetRaidRewardRemainder(ctx, tx, raid.ID, remainder)
	})
	if err != nil {
		if errors.Is(err, ErrRewardClaimed) {
			return 0, errorx.Wrap(err, errorx.Invalid)
		}
		return 0, errorx.Wrap(err, errorx.Service)
	}

	return due, nil
}

// ExpireActive ends an undefeated raid; called by the week rollover.
func (service *ServiceRaid) ExpireActive(ctx context.Context) error {
	raid, err := datastore.FindActiveRaid(ctx, service.readonlyPostgresDB)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	expired, err := datastore.MarkRaidExpired(ctx, service.postgresDB, raid.ID)
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	if expired {
		log.Println("Raid expired:", "raid:", raid.ID, "boss:", raid.BossName, "hp left:", raid.HPCurrent)
		_ = service.cache.Delete(ctx, DBKeyActiveRaid())
		if err := redis_store.ClearRaidDamage(ctx, service.redisDB, raid.ID); err != nil {
			log.Println("ClearRaidDamage:", err)
		}
	}
	return nil
}

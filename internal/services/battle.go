package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"sippets/internal/datastore"
	"sippets/internal/datastore/redis_store"
	"sippets/internal/interfaces"
	"sippets/internal/models"
	"sippets/internal/pkg/caching"
	"sippets/internal/pkg/gacha"
	"sippets/internal/pkg/ledger"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

const (
	replayStartHP   = 100
	betToleranceBps = 100
)

var (
	ErrSignatureUsed = errors.New("transaction signature already used")
	ErrBattleSettled = errors.New("battle already settled")
)

type ServiceBattle struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	rng                gacha.RNG
	limiter            interfaces.Limiter

	serviceConfig *ServiceConfig
	serviceSkill  *ServiceSkill
	verifier      TransferVerifier
	bot           *Bot
}

func NewServiceBattle(container *do.Injector) (*ServiceBattle, error) {
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

	limiter, err := do.Invoke[interfaces.Limiter](container)
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

	return &ServiceBattle{container, redisDB, rs, postgresDB, readonlyPostgresDB, cache, rng, limiter, serviceConfig, serviceSkill, verifier, bot}, nil
}

// EffectivePower folds the tribe combat bonus and skill power scaling into
// the power fed to the probability curve, so nothing touches p after the
// final clamp.
func EffectivePower(power int64, tribe models.Tribe, effects models.CombatEffects) float64 {
	return float64(power) * (1 + tribe.CombatBonus() + effects.PowerScaling)
}

// WinProbability maps the relative power gap through a saturating curve
// centered at 0.5, shifts it by the luck differential (at most ±0.15) and
// clamps to [0.20, 0.80]. Monotonically non-decreasing in the challenger's
// advantage.
func WinProbability(challengerPower float64, defenderPower float64, luckShift float64) float64 {
	maxPower := math.Max(math.Max(challengerPower, defenderPower), 1)
	gap := (challengerPower - defenderPower) / maxPower

	// saturating: |gap| <= 1, so the curve alone stays inside (0.35, 0.65)
	p := 0.5 + 0.3*gap/(1+math.Abs(gap))

	maxShift := float64(BATTLE_LUCK_SHIFT_BPS) / ledger.BpsDenominator
	p += math.Max(-maxShift, math.Min(maxShift, luckShift))

	floor := float64(BATTLE_WIN_PROB_FLOOR_BPS) / ledger.BpsDenominator
	ceil := float64(BATTLE_WIN_PROB_CEIL_BPS) / ledger.BpsDenominator
	return math.Max(floor, math.Min(ceil, p))
}

// BuildReplay simulates alternating attacks starting both sides at 100 HP.
// The winner is already decided; the loop forces the loser to hit zero, so
// the frames are narrative only and never a second source of truth.
func BuildReplay(rng gacha.RNG, winner models.ReplaySide, challengerPower, defenderPower float64, challengerFx, defenderFx models.CombatEffects) []models.ReplayFrame {
	frames := make([]models.ReplayFrame, 0, BATTLE_MAX_REPLAY_ROUNDS)
	challengerHP, defenderHP := replayStartHP, replayStartHP

	attacker := models.ReplaySideChallenger
	for round := 0; round < BATTLE_MAX_REPLAY_ROUNDS; round++ {
		var atkPower float64
		var atkFx, defFx models.CombatEffects
		if attacker == models.ReplaySideChallenger {
			atkPower, atkFx, defFx = challengerPower, challengerFx, defenderFx
		} else {
			atkPower, atkFx, defFx = defenderPower, defenderFx, challengerFx
		}

		frame := models.ReplayFrame{Attacker: attacker}

		if rng.Float64() < BATTLE_DODGE_CHANCE_BASE+defFx.DodgeChance {
			frame.Dodged = true
		} else {
			total := challengerPower + defenderPower
			damage := int(atkPower / total * replayStartHP / BATTLE_BASE_DAMAGE_DIVISOR * (4 + 4*rng.Float64()))
			damage = int(float64(damage) * (1 + atkFx.DamageBoost - defFx.DefenseBoost))
			if damage < 1 {
				damage = 1
			}
			if rng.Float64() < BATTLE_CRIT_CHANCE_BASE+atkFx.CritChance {
				frame.Crit = true
				damage *= BATTLE_CRIT_MULTIPLIER
			}
			frame.Damage = damage

			if attacker == models.ReplaySideChallenger {
				defenderHP -= damage
			} else {
				challengerHP -= damage
			}
		}

		// the decided winner never falls below 1 HP
		if winner == models.ReplaySideChallenger && challengerHP < 1 {
			challengerHP = 1
		}
		if winner == models.ReplaySideDefender && defenderHP < 1 {
			defenderHP = 1
		}
		if challengerHP < 0 {
			challengerHP = 0
		}
		if defenderHP < 0 {
			defenderHP = 0
		}

		frame.ChallengerHP = challengerHP
		frame.DefenderHP = defenderHP
		frames = append(frames, frame)

		if challengerHP == 0 || defenderHP == 0 {
			return frames
		}

		if attacker == models.ReplaySideChallenger {
			attacker = models.ReplaySideDefender
		} else {
			attacker = models.ReplaySideChallenger
		}
	}

	// round budget exhausted: force the final blow
	last := models.ReplayFrame{Attacker: winner, Damage: replayStartHP}
	if winner == models.ReplaySideChallenger {
		last.DefenderHP = 0
		last.ChallengerHP = challengerHP
	} else {
		last.ChallengerHP = 0
		last.DefenderHP = defenderHP
	}
	return append(frames, last)
}

func (service *ServiceBattle) loadFightingPet(ctx context.Context, userID int64, petID int64) (*models.Pet, models.CombatEffects, error) {
	pet, err := datastore.FindPetByID(ctx, service.readonlyPostgresDB, petID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.CombatEffects{}, errorx.Wrap(errors.New("pet not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, models.CombatEffects{}, errorx.Wrap(err, errorx.Service)
	}
	if pet.UserID != userID {
		return nil, models.CombatEffects{}, errorx.Wrap(errors.New("not your pet"), errorx.Validation)
	}
	if pet.Neglected(time.Now()) {
		return nil, models.CombatEffects{}, errorx.Wrap(errors.New("pet is neglected, care for it first"), errorx.Validation)
	}

	effects, _, err := service.serviceSkill.EffectsFor(ctx, pet.ID)
	if err != nil {
		return nil, models.CombatEffects{}, err
	}
	return pet, effects, nil
}

// verifyAndCheckAmount runs the oracle and enforces the ±1% band between the
// declared bet and what actually moved on chain. A signature already reserved
// fails before the chain round trip.
func (service *ServiceBattle) verifyAndCheckAmount(ctx context.Context, signature string, sender string, declared int64) (int64, error) {
	if existing, err := datastore.FindTransferBySignature(ctx, service.readonlyPostgresDB, signature); err == nil && existing != nil {
		return 0, errorx.Wrap(ErrSignatureUsed, errorx.Invalid)
	}

	verified, err := service.verifier.VerifyTransfer(ctx, signature, sender)
	if err != nil {
		return 0, err
	}
	if !verified.Valid {
		return 0, errorx.Wrap(ErrTransferInvalid, errorx.Validation)
	}
	if !ledger.WithinTolerance(declared, verified.Amount, betToleranceBps) {
		return 0, errorx.Wrap(fmt.Errorf("on-chain amount %d outside tolerance of declared %d", verified.Amount, declared), errorx.Validation)
	}
	return verified.Amount, nil
}

func (service *ServiceBattle) senderWallet(ctx context.Context, userID int64) string {
	wallet, err := datastore.FindUserWalletByUserID(ctx, service.readonlyPostgresDB, userID)
	if err != nil || wallet == nil || wallet.TONWallet == nil {
		return ""
	}
	return *wallet.TONWallet
}

func (service *ServiceBattle) Create(ctx context.Context, user *models.User, petID int64, bet int64, txSignature string) (*models.Battle, error) {
	if err := service.limiter.Allow(ctx, LimitKeyBattleCreate(user.ID), redis_rate.PerMinute(BATTLE_RATE_LIMIT_PER_MIN)); err != nil {
		return nil, err
	}

	minBet, _ := service.serviceConfig.GetInt64Config(ctx, CONFIG_MIN_BATTLE_BET, DEFAULT_MIN_BATTLE_BET)
	maxBet, _ := service.serviceConfig.GetInt64Config(ctx, CONFIG_MAX_BATTLE_BET, DEFAULT_MAX_BATTLE_BET)
	if bet < minBet || bet > maxBet {
		return nil, errorx.Wrap(fmt.Errorf("bet must be between %d and %d", minBet, maxBet), errorx.Validation)
	}

	// skills are re-read at settlement; only the power snapshot persists here
	pet, _, err := service.loadFightingPet(ctx, user.ID, petID)
	if err != nil {
		return nil, err
	}

	if _, err := service.verifyAndCheckAmount(ctx, txSignature, service.senderWallet(ctx, user.ID), bet); err != nil {
		return nil, err
	}

	battle := &models.Battle{
		ID:              uuid.NewString(),
		ChallengerID:    user.ID,
		ChallengerPetID: pet.ID,
		ChallengerPower: pet.Power,
		ChallengerBet:   bet,
		ChallengerTx:    txSignature,
		Status:          models.BattleStatusPending,
		CreatedAt:       time.Now(),
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reserved, err := datastore.ReserveTransfer(ctx, tx, &models.TokenTransfer{
			Signature: txSignature,
			UserID:    user.ID,
			Amount:    bet,
			Purpose:   models.TransferPurposeBattleCreate,
		})
		if err != nil {
			return err
		}
		if !reserved {
			return ErrSignatureUsed
		}

		_, err = datastore.CreateBattle(ctx, tx, battle)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSignatureUsed) {
			return nil, errorx.Wrap(err, errorx.Invalid)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return battle, nil
}

// Accept settles in one atomic step: defender snapshot, probability, outcome
// draw, prize split and replay all commit in a single transaction gated on
// the battle still being PENDING. The loser of a race between two acceptors
// gets a conflict error and no draw is consumed twice.
func (service *ServiceBattle) Accept(ctx context.Context, user *models.User, battleID string, petID int64, txSignature string) (*models.Battle, error) {
	mutex := service.rs.NewMutex(LockKeyBattle(battleID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrBattleLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	battle, err := datastore.FindBattleByID(ctx, service.readonlyPostgresDB, battleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("battle not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if battle.Status != models.BattleStatusPending {
		return nil, errorx.Wrap(ErrBattleSettled, errorx.Invalid)
	}
	if battle.ChallengerID == user.ID {
		return nil, errorx.Wrap(errors.New("cannot accept your own battle"), errorx.Validation)
	}

	pet, defenderFx, err := service.loadFightingPet(ctx, user.ID, petID)
	if err != nil {
		return nil, err
	}

	if _, err := service.verifyAndCheckAmount(ctx, txSignature, service.senderWallet(ctx, user.ID), battle.ChallengerBet); err != nil {
		return nil, err
	}

	challengerPet, err := datastore.FindPetByID(ctx, service.readonlyPostgresDB, battle.ChallengerPetID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	challengerFx, _, err := service.serviceSkill.EffectsFor(ctx, challengerPet.ID)
	if err != nil {
		return nil, err
	}

	challengerEff := EffectivePower(battle.ChallengerPower, challengerPet.Tribe, challengerFx)
	defenderEff := EffectivePower(pet.Power, pet.Tribe, defenderFx)
	luckShift := (challengerFx.Luck + challengerPet.Tribe.LuckBonus()) - (defenderFx.Luck + pet.Tribe.LuckBonus())
	p := WinProbability(challengerEff, defenderEff, luckShift)

	// the single outcome draw; persisted with the settlement so a retry of a
	// failed transaction cannot redraw
	challengerWins := service.rng.Float64() < p
	winnerSide := models.ReplaySideDefender
	if challengerWins {
		winnerSide = models.ReplaySideChallenger
	}

	pot := battle.ChallengerBet * 2
	burned, err := ledger.Burn(pot, BATTLE_BURN_RATE_BPS)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	prize := pot - burned

	replay := BuildReplay(service.rng, winnerSide, challengerEff, defenderEff, challengerFx, defenderFx)

	defenderBet := battle.ChallengerBet
	battle.DefenderID = &user.ID
	battle.DefenderPetID = &pet.ID
	battle.DefenderPower = &pet.Power
	battle.DefenderBet = &defenderBet
	battle.DefenderTx = &txSignature
	battle.Status = models.BattleStatusCompleted
	battle.PrizePool = prize
	battle.BurnedAmount = burned
	battle.Replay = replay
	if challengerWins {
		battle.WinnerID = &battle.ChallengerID
		battle.WinnerPetID = &battle.ChallengerPetID
	} else {
		battle.WinnerID = &user.ID
		battle.WinnerPetID = &pet.ID
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reserved, err := datastore.ReserveTransfer(ctx, tx, &models.TokenTransfer{
			Signature: txSignature,
			UserID:    user.ID,
			Amount:    defenderBet,
			Purpose:   models.TransferPurposeBattleAccept,
		})
		if err != nil {
			return err
		}
		if !reserved {
			return ErrSignatureUsed
		}

		settled, err := datastore.SettleBattle(ctx, tx, battle)
		if err != nil {
			return err
		}
		if !settled {
			return ErrBattleSettled
		}

		events := []*models.PetEvent{
			{
				UserID: battle.ChallengerID,
				PetID:  battle.ChallengerPetID,
				Tribe:  challengerPet.Tribe,
				Type:   models.EventBattleSettled,
				Value:  boolToScore(challengerWins),
				Ref:    battle.ID,
			},
			{
				UserID: user.ID,
				PetID:  pet.ID,
				Tribe:  pet.Tribe,
				Type:   models.EventBattleSettled,
				Value:  boolToScore(!challengerWins),
				Ref:    battle.ID,
			},
		}
		return datastore.InsertPetEvents(ctx, tx, events)
	})
	if err != nil {
		if errors.Is(err, ErrSignatureUsed) || errors.Is(err, ErrBattleSettled) {
			return nil, errorx.Wrap(err, errorx.Invalid)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if err := redis_store.SaveBattleReplay(ctx, service.redisDB, battle.ID, replay); err != nil {
		log.Println("SaveBattleReplay:", err)
	}

	go service.notifySettled(battle)

	return battle, nil
}

func boolToScore(won bool) int64 {
	if won {
		return 1
	}
	return 0
}

func (service *ServiceBattle) notifySettled(battle *models.Battle) {
	if battle.WinnerID == nil || battle.DefenderID == nil {
		return
	}
	loserID := battle.ChallengerID
	if *battle.WinnerID == battle.ChallengerID {
		loserID = *battle.DefenderID
	}

	ctx := context.Background()
	notifyUser(ctx, service.redisDB, service.bot, *battle.WinnerID, fmt.Sprintf("⚔️ Victory! Your pet won the battle and %d $SIP.", battle.PrizePool))
	notifyUser(ctx, service.redisDB, service.bot, loserID, "💀 Your pet lost the battle. Train up and try again!")
}

func (service *ServiceBattle) Cancel(ctx context.Context, user *models.User, battleID string) error {
	cancelled, err := datastore.CancelBattle(ctx, service.postgresDB, battleID, user.ID)
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	if !cancelled {
		return errorx.Wrap(errors.New("battle is not yours or no longer pending"), errorx.Invalid)
	}
	return nil
}

func (service *ServiceBattle) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	battle, err := datastore.FindBattleByID(ctx, service.readonlyPostgresDB, battleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("battle not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if len(battle.Replay) == 0 && battle.Status == models.BattleStatusCompleted {
		replay, err := redis_store.GetBattleReplay(ctx, service.redisDB, battle.ID)
		if err == nil {
			battle.Replay = replay
		}
	}
	return battle, nil
}

func (service *ServiceBattle) ListOpen(ctx context.Context, user *models.User) ([]*models.Battle, error) {
	battles, err := datastore.GetOpenBattles(ctx, service.readonlyPostgresDB, user.ID, BATTLE_OPEN_LIST_LIMIT)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return battles, nil
}

func (service *ServiceBattle) History(ctx context.Context, user *models.User, limit int, offset int) ([]*models.Battle, error) {
	battles, err := datastore.GetBattlesByUserID(ctx, service.readonlyPostgresDB, user.ID, limit, offset)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return battles, nil
}

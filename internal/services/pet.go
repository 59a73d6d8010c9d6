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
	"sippets/internal/interfaces"
	"sippets/internal/models"
	"sippets/internal/pkg/gacha"
	"sippets/internal/pkg/ledger"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

var (
	ErrNoPet         = errors.New("adopt a pet first")
	ErrAlreadyHasPet = errors.New("you already have a pet")
)

type CareAction string

const (
	CareActionPlay CareAction = "play"
	CareActionRest CareAction = "rest"
)

type ServicePet struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	limiter            interfaces.Limiter
	rng                gacha.RNG

	serviceConfig *ServiceConfig
	serviceSkill  *ServiceSkill
	verifier      TransferVerifier
}

func NewServicePet(container *do.Injector) (*ServicePet, error) {
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

	limiter, err := do.Invoke[interfaces.Limiter](container)
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

	return &ServicePet{container, redisDB, rs, postgresDB, readonlyPostgresDB, limiter, rng, serviceConfig, serviceSkill, verifier}, nil
}

func (service *ServicePet) Adopt(ctx context.Context, user *models.User, name string, tribe models.Tribe) (*models.Pet, error) {
	if name == "" || len(name) > 32 {
		return nil, errorx.Wrap(errors.New("pet name must be 1-32 characters"), errorx.Validation)
	}
	if !tribe.Valid() {
		return nil, errorx.Wrap(errors.New("unknown tribe"), errorx.Validation)
	}

	existing, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, user.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if existing != nil {
		return nil, errorx.Wrap(ErrAlreadyHasPet, errorx.Invalid)
	}

	now := time.Now()
	pet := &models.Pet{
		UserID:    user.ID,
		Name:      name,
		Tribe:     tribe,
		Stage:     models.PetStageEgg,
		Hunger:    80,
		Mood:      80,
		Energy:    80,
		StatsAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	pet, err = datastore.CreatePet(ctx, service.postgresDB, pet)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	log.Println("Pet adopted:", "user:", user.ID, "pet:", pet.ID, "tribe:", pet.Tribe)
	return pet, nil
}

func (service *ServicePet) GetPet(ctx context.Context, userID int64) (*models.Pet, error) {
	pet, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrNoPet, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	now := time.Now()
	pet.ApplyDecay(now)
	pet.IsNeglected = pet.Neglected(now)
	if pet.IsNeglected && pet.LastActionAt != nil {
		days := int(now.Sub(*pet.LastActionAt) / (24 * time.Hour))
		pet.NeglectPenalty, _ = ledger.NeglectPenalty(pet.StakedAmount, days, NEGLECT_KEEP_RATE_BPS)
	}
	pet.Skills, _ = datastore.GetSkillsByPetID(ctx, service.readonlyPostgresDB, pet.ID)
	return pet, nil
}

// touchForAction applies decay, bumps the streak when a calendar day passed
// since the last action, and advances the stage when the action count crosses
// a threshold. Returns whether the pet evolved.
func touchForAction(pet *models.Pet, now time.Time) bool {
	pet.ApplyDecay(now)

	if pet.LastActionAt == nil || now.Sub(*pet.LastActionAt) >= 24*time.Hour {
		pet.CareStreak++
	}
	if pet.LastActionAt != nil && now.Sub(*pet.LastActionAt) >= models.NeglectAfter {
		pet.CareStreak = 1
	}

	pet.TotalActions++
	pet.LastActionAt = &now

	newStage := models.StageForActions(pet.TotalActions)
	evolved := newStage > pet.Stage
	pet.Stage = newStage
	return evolved
}

func (service *ServicePet) allowAction(ctx context.Context, userID int64) error {
	return service.limiter.Allow(ctx, LimitKeyPetAction(userID), redis_rate.PerMinute(BATTLE_RATE_LIMIT_PER_MIN))
}

// Care is the free daily loop: play lifts mood and drains energy, rest does
// the opposite.
func (service *ServicePet) Care(ctx context.Context, user *models.User, action CareAction) (*models.Pet, error) {
	if err := service.allowAction(ctx, user.ID); err != nil {
		return nil, err
	}

	mutex := service.rs.NewMutex(LockKeyUserPet(user.ID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrPetLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	pet, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrNoPet, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	now := time.Now()
	evolved := touchForAction(pet, now)

	switch action {
	case CareActionPlay:
		pet.Mood = models.ClampStat(pet.Mood + 15)
		pet.Energy = models.ClampStat(pet.Energy - 10)
		pet.Reputation = models.ClampStat(pet.Reputation + 1)
	case CareActionRest:
		pet.Energy = models.ClampStat(pet.Energy + 20)
	default:
		return nil, errorx.Wrap(fmt.Errorf("unknown care action %q", action), errorx.Validation)
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := datastore.UpdatePet(ctx, tx, pet); err != nil {
			return err
		}

		events := []*models.PetEvent{{
			UserID: user.ID,
			PetID:  pet.ID,
			Tribe:  pet.Tribe,
			Type:   models.EventActionPerformed,
			Value:  1,
			Ref:    fmt.Sprintf("%s:%d:%d", action, pet.ID, pet.TotalActions),
		}}
		if evolved {
			events = append(events, &models.PetEvent{
				UserID: user.ID,
				PetID:  pet.ID,
				Tribe:  pet.Tribe,
				Type:   models.EventEvolved,
				Value:  int64(pet.Stage),
				Ref:    fmt.Sprintf("stage:%d:%d", pet.ID, pet.Stage),
			})
		}
		return datastore.InsertPetEvents(ctx, tx, events)
	})
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	pet.IsNeglected = false
	return pet, nil
}

// Feed converts a verified $SIP transfer into hunger, power and, above the
// configured gate, one guaranteed skill roll. The transfer signature anchors
// every derived write, so replaying the request changes nothing.
func (service *ServicePet) Feed(ctx context.Context, user *models.User, amount int64, txSignature string) (*models.Pet, *models.SkillRollResult, error) {
	if amount <= 0 {
		return nil, nil, errorx.Wrap(errors.New("feed amount must be positive"), errorx.Validation)
	}

	mutex := service.rs.NewMutex(LockKeyUserPet(user.ID))
	if err := mutex.TryLock(); err != nil {
		return nil, nil, errorx.Wrap(ErrPetLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	pet, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errorx.Wrap(ErrNoPet, errorx.NotExist)
	}
	if err != nil {
		return nil, nil, errorx.Wrap(err, errorx.Service)
	}

	wallet, _ := datastore.FindUserWalletByUserID(ctx, service.readonlyPostgresDB, user.ID)
	sender := ""
	if wallet != nil && wallet.TONWallet != nil {
		sender = *wallet.TONWallet
	}

	verified, err := service.verifier.VerifyTransfer(ctx, txSignature, sender)
	if err != nil {
		return nil, nil, err
	}
	if !verified.Valid {
		return nil, nil, errorx.Wrap(ErrTransferInvalid, errorx.Validation)
	}
	if !ledger.WithinTolerance(amount, verified.Amount, betToleranceBps) {
		return nil, nil, errorx.Wrap(fmt.Errorf("on-chain amount %d outside tolerance of declared %d", verified.Amount, amount), errorx.Validation)
	}

	now := time.Now()
	evolved := touchForAction(pet, now)

	powerGained := int64(float64(verified.Amount/FEED_SIP_PER_POWER) * (1 + pet.Tribe.FeedBonus()))
	pet.Hunger = models.ClampStat(pet.Hunger + int(verified.Amount/100))
	pet.Power += powerGained
	pet.StakedAmount += verified.Amount

	gate, _ := service.serviceConfig.GetInt64Config(ctx, CONFIG_SKILL_FEED_GATE, SKILL_FEED_GATE_DEFAULT)

	// the guaranteed roll shares the feed transaction: a reserved signature
	// with no granted skill must be impossible
	var roll *models.SkillRollResult
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reserved, err := datastore.ReserveTransfer(ctx, tx, &models.TokenTransfer{
			Signature: txSignature,
			UserID:    user.ID,
			Amount:    verified.Amount,
			Purpose:   models.TransferPurposeFeed,
		})
		if err != nil {
			return err
		}
		if !reserved {
			return ErrSignatureUsed
		}

		if _, err := datastore.UpdatePet(ctx, tx, pet); err != nil {
			return err
		}

		events := []*models.PetEvent{{
			UserID: user.ID,
			PetID:  pet.ID,
			Tribe:  pet.Tribe,
			Type:   models.EventActionPerformed,
			Value:  powerGained,
			Ref:    fmt.Sprintf("feed:%s", txSignature),
		}}
		if evolved {
			events = append(events, &models.PetEvent{
				UserID: user.ID,
				PetID:  pet.ID,
				Tribe:  pet.Tribe,
				Type:   models.EventEvolved,
				Value:  int64(pet.Stage),
				Ref:    fmt.Sprintf("stage:%d:%d", pet.ID, pet.Stage),
			})
		}
		if err := datastore.InsertPetEvents(ctx, tx, events); err != nil {
			return err
		}

		if verified.Amount >= gate {
			roll, err = service.serviceSkill.RollAcquisition(ctx, tx, pet, fmt.Sprintf("feed:%s", txSignature))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSignatureUsed) {
			return nil, nil, errorx.Wrap(err, errorx.Invalid)
		}
		return nil, nil, errorx.Wrap(err, errorx.Service)
	}

	if err := redis_store.SetPowerScore(ctx, service.redisDB, user.ID, pet.Power); err != nil {
		log.Println("SetPowerScore:", err)
	}

	return pet, roll, nil
}

// Visit lets a user drop by someone else's pet once per day; the host's
// tribe earns the social points.
func (service *ServicePet) Visit(ctx context.Context, visitor *models.User, hostUserID int64) error {
	if visitor.ID == hostUserID {
		return errorx.Wrap(errors.New("cannot visit your own pet"), errorx.Validation)
	}
	if err := service.allowAction(ctx, visitor.ID); err != nil {
		return err
	}

	pet, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, hostUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return errorx.Wrap(errors.New("host has no pet"), errorx.NotExist)
	}
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	// unique per visitor per day via the event ref
	err = datastore.InsertPetEvent(ctx, service.postgresDB, &models.PetEvent{
		UserID: hostUserID,
		PetID:  pet.ID,
		Tribe:  pet.Tribe,
		Type:   models.EventVisitReceived,
		Value:  1,
		Ref:    fmt.Sprintf("visit:%d:%s", visitor.ID, time.Now().Format("2006-01-02")),
	})
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	return nil
}

// React records an emoji reaction on someone's pet, one per reactor per day.
func (service *ServicePet) React(ctx context.Context, reactor *models.User, hostUserID int64) error {
	if reactor.ID == hostUserID {
		return errorx.Wrap(errors.New("cannot react to your own pet"), errorx.Validation)
	}
	if err := service.allowAction(ctx, reactor.ID); err != nil {
		return err
	}

	pet, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, hostUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return errorx.Wrap(errors.New("host has no pet"), errorx.NotExist)
	}
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	err = datastore.InsertPetEvent(ctx, service.postgresDB, &models.PetEvent{
		UserID: hostUserID,
		PetID:  pet.ID,
		Tribe:  pet.Tribe,
		Type:   models.EventReactionReceived,
		Value:  1,
		Ref:    fmt.Sprintf("react:%d:%s", reactor.ID, time.Now().Format("2006-01-02")),
	})
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	return nil
}

func (service *ServicePet) Events(ctx context.Context, userID int64, limit int, offset int) ([]*models.PetEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	events, err := datastore.GetPetEventsByUserID(ctx, service.readonlyPostgresDB, userID, limit, offset)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return events, nil
}

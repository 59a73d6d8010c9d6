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
	"sippets/internal/models"
	"sippets/internal/pkg/weekclock"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// Scoring points per event and the five dimension weights (percent, sum 100).
const (
	ACTION_POINTS       = 1
	VISIT_POINTS        = 2
	REACTION_POINTS     = 1
	STREAK_POINTS       = 5
	RITUAL_BONUS_POINTS = 50
	POWER_POINT_DIVISOR = 10

	WEIGHT_ACTIVITY    = 25
	WEIGHT_SOCIAL      = 20
	WEIGHT_CONSISTENCY = 20
	WEIGHT_EVENT       = 15
	WEIGHT_POWER       = 20
)

type ServiceTribeScore struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB

	serviceRaid *ServiceRaid
	bot         *Bot
}

func NewServiceTribeScore(container *do.Injector) (*ServiceTribeScore, error) {
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

	serviceRaid, err := do.Invoke[*ServiceRaid](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServiceTribeScore{container, redisDB, rs, postgresDB, readonlyPostgresDB, serviceRaid, bot}, nil
}

// WeightedTotal applies the five fixed weights and rounds half up.
func WeightedTotal(score *models.TribeScore) int64 {
	weighted := float64(score.Activity*WEIGHT_ACTIVITY+
		score.Social*WEIGHT_SOCIAL+
		score.Consistency*WEIGHT_CONSISTENCY+
		score.Event*WEIGHT_EVENT+
		score.Power*WEIGHT_POWER) / 100
	return int64(math.Round(weighted))
}

// EnsureActiveWeek returns the current week row, creating it from the wall
// clock when the table is empty (first boot).
func (service *ServiceTribeScore) EnsureActiveWeek(ctx context.Context) (*models.Week, error) {
	week, err := datastore.FindActiveWeek(ctx, service.readonlyPostgresDB)
	if err == nil {
		return week, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	window := weekclock.Of(time.Now())
	week = &models.Week{
		Number:    window.Number,
		Year:      window.Year,
		StartsAt:  window.StartsAt,
		EndsAt:    window.EndsAt,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	week, err = datastore.CreateWeek(ctx, service.postgresDB, week)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return week, nil
}

func (service *ServiceTribeScore) scoreTribe(ctx context.Context, week *models.Week, tribe models.Tribe) (*models.TribeScore, error) {
	db := service.readonlyPostgresDB
	from, to := week.StartsAt, week.EndsAt

	actions, err := datastore.CountTribeEventsByType(ctx, db, tribe, models.EventActionPerformed, from, to)
	if err != nil {
		return nil, err
	}
	visits, err := datastore.CountTribeEventsByType(ctx, db, tribe, models.EventVisitReceived, from, to)
	if err != nil {
		return nil, err
	}
	reactions, err := datastore.CountTribeEventsByType(ctx, db, tribe, models.EventReactionReceived, from, to)
	if err != nil {
		return nil, err
	}
	evolutions, err := datastore.CountTribeEventsByType(ctx, db, tribe, models.EventEvolved, from, to)
	if err != nil {
		return nil, err
	}
	killingBlows, err := datastore.CountTribeEventsByType(ctx, db, tribe, models.EventRaidKillingBlow, from, to)
	if err != nil {
		return nil, err
	}
	careStreak, err := datastore.SumTribeCareStreak(ctx, db, tribe)
	if err != nil {
		return nil, err
	}
	power, err := datastore.SumTribePower(ctx, db, tribe)
	if err != nil {
		return nil, err
	}

	score := &models.TribeScore{
		WeekID:      week.ID,
		Tribe:       tribe,
		Activity:    actions * ACTION_POINTS,
		Social:      visits*VISIT_POINTS + reactions*REACTION_POINTS,
		Consistency: careStreak * STREAK_POINTS,
		Event:       (evolutions + killingBlows) * RITUAL_BONUS_POINTS,
		Power:       power / POWER_POINT_DIVISOR,
	}
	score.Total = WeightedTotal(score)
	return score, nil
}

// Recompute folds the event log into one score row per tribe. It is a pure
// fold, not an incremental counter: running it twice over the same events
// lands on the same totals.
func (service *ServiceTribeScore) Recompute(ctx context.Context, weekID int64) ([]*models.TribeScore, error) {
	week, err := datastore.FindWeekByID(ctx, service.readonlyPostgresDB, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("week not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	scores := make([]*models.TribeScore, len(models.Tribes))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, tribe := range models.Tribes {
		i, tribe := i, tribe
		group.Go(func() error {
			score, err := service.scoreTribe(groupCtx, week, tribe)
			if err != nil {
				return err
			}
			scores[i] = score
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	for _, score := range scores {
		if err := datastore.UpsertTribeScore(ctx, service.postgresDB, score); err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		if err := redis_store.SetTribeScore(ctx, service.redisDB, week.ID, score.Tribe, score.Total); err != nil {
			log.Println("SetTribeScore:", err)
		}
	}

	return scores, nil
}

// winnerOf picks the tribe with strictly greatest total; a tie at the top
// means no winner.
func winnerOf(scores []*models.TribeScore) *models.Tribe {
	if len(scores) == 0 {
		return nil
	}

	best := scores[0]
	tied := false
	for _, score := range scores[1:] {
		if score.Total > best.Total {
			best = score
			tied = false
		} else if score.Total == best.Total {
			tied = true
		}
	}
	if tied || best.Total == 0 {
		return nil
	}

	tribe := best.Tribe
	return &tribe
}

// Rollover freezes the week, stamps the winner, issues badges and opens the
// next week in one transaction. A tie at the top yields no winner and no
// badges. The active raid, if still alive, expires alongside.
func (service *ServiceTribeScore) Rollover(ctx context.Context, weekID int64) (*models.Week, error) {
	mutex := service.rs.NewMutex(LockKeyWeekRollover())
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrWeekRolloverLock, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	week, err := datastore.FindWeekByID(ctx, service.readonlyPostgresDB, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("week not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if !week.IsActive {
		return nil, errorx.Wrap(errors.New("week already closed"), errorx.Invalid)
	}

	scores, err := service.Recompute(ctx, weekID)
	if err != nil {
		return nil, err
	}
	winner := winnerOf(scores)

	next := weekclock.Next(weekclock.Window{
		Number:   week.Number,
		Year:     week.Year,
		StartsAt: week.StartsAt,
		EndsAt:   week.EndsAt,
	})
	nextWeek := &models.Week{
		Number:    next.Number,
		Year:      next.Year,
		StartsAt:  next.StartsAt,
		EndsAt:    next.EndsAt,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	var winnerUserIDs []int64
	if winner != nil {
		winnerUserIDs, err = datastore.GetUserIDsByTribe(ctx, service.readonlyPostgresDB, *winner)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
	}

	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		closed, err := datastore.CloseWeek(ctx, tx, week.ID, winner)
		if err != nil {
			return err
		}
		if !closed {
			return errors.New("week already closed")
		}

		if winner != nil {
			badges := make([]*models.TribeBadge, 0, len(winnerUserIDs))
			events := make([]*models.PetEvent, 0, len(winnerUserIDs))
			for _, userID := range winnerUserIDs {
				badges = append(badges, &models.TribeBadge{
					UserID:    userID,
					WeekID:    week.ID,
					Tribe:     *winner,
					CreatedAt: time.Now(),
				})
				events = append(events, &models.PetEvent{
					UserID: userID,
					Tribe:  *winner,
					Type:   models.EventWeekRolledOver,
					Value:  1,
					Ref:    fmt.Sprintf("week:%d", week.ID),
				})
			}
			if err := datastore.CreateTribeBadges(ctx, tx, badges); err != nil {
				return err
			}
			if err := datastore.InsertPetEvents(ctx, tx, events); err != nil {
				return err
			}
		}

		nextWeek, err = datastore.CreateWeek(ctx, tx, nextWeek)
		return err
	})
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if err := service.serviceRaid.ExpireActive(ctx); err != nil {
		log.Println("ExpireActive:", err)
	}

	if winner != nil {
		log.Println("Week closed:", "week:", week.ID, "winner:", *winner, "badges:", len(winnerUserIDs))
	} else {
		log.Println("Week closed:", "week:", week.ID, "winner: none")
	}

	return nextWeek, nil
}

func (service *ServiceTribeScore) Standings(ctx context.Context, weekID int64) ([]*models.TribeStanding, error) {
	standings, err := redis_store.GetTribeLeaderboard(ctx, service.redisDB, weekID)
	if err != nil || len(standings) == 0 {
		scores, err := datastore.GetTribeScoresByWeekID(ctx, service.readonlyPostgresDB, weekID)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}

		standings = make([]*models.TribeStanding, 0, len(scores))
		for i, score := range scores {
			standings = append(standings, &models.TribeStanding{
				Tribe: score.Tribe,
				Total: score.Total,
				Rank:  i + 1,
			})
		}
	}

	week, err := datastore.FindWeekByID(ctx, service.readonlyPostgresDB, weekID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	for _, standing := range standings {
		standing.BattleWins, _ = datastore.CountBattleWinsByTribe(ctx, service.readonlyPostgresDB, standing.Tribe, week.StartsAt, week.EndsAt)
		standing.RaidDamage, _ = datastore.SumRaidDamageByTribe(ctx, service.readonlyPostgresDB, standing.Tribe, week.StartsAt, week.EndsAt)
	}
	return standings, nil
}

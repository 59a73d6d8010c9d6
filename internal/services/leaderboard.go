package services

import (
	"context"
	"fmt"
	"sippets/internal/datastore/redis_store"
	"sippets/internal/models"
	"sippets/internal/pkg/caching"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

type ServiceLeaderboard struct {
	container     *do.Injector
	redisDB       redis.UniversalClient
	redisDBCache  redis.UniversalClient
	cache         caching.Cache
	readonlyCache caching.ReadOnlyCache

	serviceUser   *ServiceUser
	serviceConfig *ServiceConfig
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	dbRedisCache, err := do.InvokeNamed[redis.UniversalClient](container, "redis-cache")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceUser, err := do.Invoke[*ServiceUser](container)
	if err != nil {
		return nil, err
	}
	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{container, db, dbRedisCache, cache, readonlyCache, serviceUser, serviceConfig}, nil
}

// GetPowerLeaderboard returns the global pet power ranking. Scores are kept in
// a redis sorted set updated on every feed, so no Postgres scan is needed.
func (service *ServiceLeaderboard) GetPowerLeaderboard(ctx context.Context, user *models.User) (*models.LeaderboardResponse, error) {
	limit, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_POWER_LEADERBOARD_LIMIT, POWER_LEADERBOARD_DEFAULT_LIMIT)

	callback := func() (*models.LeaderboardResponse, error) {
		leaderboard, err := redis_store.GetPowerLeaderboard(ctx, service.redisDB, limit)
		if err != nil {
			return nil, err
		}

		rank, err := redis_store.GetPowerRank(ctx, service.redisDB, user.ID)

		score := float64(0)
		if err == redis.Nil {
			rank = -1
		} else {
			score, err = redis_store.GetPowerScore(ctx, service.redisDB, user.ID)
		}

		if err != nil && err != redis.Nil {
			return nil, err
		}

		return service.decorate(ctx, user, leaderboard, rank, score), nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyPowerLeaderboardByUser(user.ID, limit), CACHE_TTL_1_MIN, callback)
}

// GetRaidLeaderboard returns the damage ranking of a raid. The underlying
// sorted set counts raw rolled damage, including hits landed after the boss
// reached zero HP.
func (service *ServiceLeaderboard) GetRaidLeaderboard(ctx context.Context, raidID int64, user *models.User) (*models.LeaderboardResponse, error) {
	limit, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_RAID_LEADERBOARD_LIMIT, RAID_LEADERBOARD_DEFAULT_LIMIT)

	callback := func() (*models.LeaderboardResponse, error) {
		leaderboard, err := redis_store.GetRaidDamageLeaderboard(ctx, service.redisDB, raidID, limit)
		if err != nil {
			return nil, err
		}

		rank, err := redis_store.GetRaidDamageRank(ctx, service.redisDB, raidID, user.ID)

		score := float64(0)
		if err == redis.Nil {
			rank = -1
		} else {
			score, err = redis_store.GetRaidDamageScore(ctx, service.redisDB, raidID, user.ID)
		}

		if err != nil && err != redis.Nil {
			return nil, err
		}

		return service.decorate(ctx, user, leaderboard, rank, score), nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyRaidLeaderboardByUser(raidID, user.ID, limit), CACHE_TTL_5_SECONDS, callback)
}

func (service *ServiceLeaderboard) ClearLeaderboardCache(ctx context.Context, leaderboardName string) error {
	caching.DeleteKeys(ctx, service.redisDBCache, fmt.Sprintf("leaderboard_by_user:%s*", leaderboardName))
	return nil
}

func (service *ServiceLeaderboard) decorate(ctx context.Context, user *models.User, leaderboard []*models.LeaderboardItem, rank int64, score float64) *models.LeaderboardResponse {
	for _, item := range leaderboard {
		// censor username
		u, _ := service.serviceUser.FindUserByID(ctx, item.UserId)
		if u != nil {
			if u.Username == "" {
				item.Username = censorUsername(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
			} else {
				item.Username = censorUsername(u.Username)
			}

			if u.PhotoURL != "" {
				item.Avatar = &u.PhotoURL
			}
		}
	}

	response := &models.LeaderboardResponse{
		Leaderboard: leaderboard,
		Me: &models.LeaderboardItem{
			Username: user.Username,
			UserId:   user.ID,
			Score:    score,
			Rank:     int(rank + 1),
			Avatar:   &user.PhotoURL,
		},
	}

	if user.Username == "" {
		response.Me.Username = fmt.Sprintf("%s %s", user.FirstName, user.LastName)
	}

	return response
}

func censorUsername(username string) string {
	if len(username) < 3 {
		return username
	}
	firstTwo := username[:2]
	lastChar := string(username[len(username)-1])

	middle := "*****"

	return firstTwo + middle + lastChar
}

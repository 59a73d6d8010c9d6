package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/tonkeeper/tongo"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"sippets/internal/datastore"
	"sippets/internal/models"
	"sippets/internal/pkg/caching"
)

var ErrUserLock = errors.New("user locked")

type ServiceUser struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	bot           *Bot
	serviceConfig *ServiceConfig
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	db, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
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

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, db, postgresDB, readonlyPostgresDB, cache, readonlyCache, bot, serviceConfig}, nil
}

func (service *ServiceUser) FindOrCreateUser(ctx context.Context, userAuth *models.UserFromAuth) (*models.User, error) {
	if userAuth == nil {
		return nil, errors.New("userAuth is nil")
	}

	user, _ := service.FindUserByID(ctx, userAuth.ID)
	if user != nil {
		if (user.Username != strings.ToLower(userAuth.Username)) ||
			(user.FirstName != userAuth.FirstName) ||
			(user.LastName != userAuth.LastName) ||
			(user.PhotoURL != userAuth.PhotoURL) {
			user.Username = strings.ToLower(userAuth.Username)
			user.FirstName = userAuth.FirstName
			user.LastName = userAuth.LastName
			user.PhotoURL = userAuth.PhotoURL
			_, _ = datastore.UpdateUserProfile(ctx, service.postgresDB, user)
			_ = service.cache.Delete(ctx, DBKeyUser(user.ID))
		}
		return user, nil
	}

	now := time.Now()
	newUser := &models.User{
		ID:           userAuth.ID,
		FirstName:    userAuth.FirstName,
		IsBot:        userAuth.IsBot,
		IsPremium:    userAuth.IsPremium,
		LastName:     userAuth.LastName,
		Username:     strings.ToLower(userAuth.Username),
		LanguageCode: userAuth.LanguageCode,
		PhotoURL:     userAuth.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	log.Println("Create new user:", "user:", newUser.ID, "username:", newUser.Username)
	user, err := datastore.CreateUser(ctx, service.postgresDB, newUser)
	if err != nil {
		return nil, err
	}

	user.IsNewUser = true

	go func() {
		err := service.bot.SendWelcomeMsg(user.ID)
		if err != nil {
			log.Println(err)
		}
	}()

	return user, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}

// Me assembles the profile view: pet with decayed stats, badges and wallet.
func (service *ServiceUser) Me(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errorx.Wrap(errors.New("user not found"), errorx.NotExist)
	}

	me, err := datastore.FindUserByID(ctx, service.readonlyPostgresDB, user.ID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	pet, err := datastore.FindPetByUserID(ctx, service.readonlyPostgresDB, me.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if pet != nil {
		now := time.Now()
		pet.ApplyDecay(now)
		pet.IsNeglected = pet.Neglected(now)
		pet.Skills, _ = datastore.GetSkillsByPetID(ctx, service.readonlyPostgresDB, pet.ID)
		me.Pet = pet
	}

	me.Badges, _ = datastore.GetBadgesByUserID(ctx, service.readonlyPostgresDB, me.ID)

	wallet, _ := service.FindUserWalletByUserID(ctx, me.ID)
	if wallet != nil {
		me.TONWallet = wallet.TONWallet
	}

	me.IsNewUser = user.IsNewUser
	return me, nil
}

// Transfers lists the user's reserved $SIP transfer signatures, newest first.
func (service *ServiceUser) Transfers(ctx context.Context, userID int64, limit int, offset int) ([]*models.TokenTransfer, error) {
	transfers, err := datastore.GetTransfersByUserID(ctx, service.readonlyPostgresDB, userID, limit, offset)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return transfers, nil
}

func (service *ServiceUser) FindUserWalletByUserID(ctx context.Context, userID int64) (*models.UserWallet, error) {
	callback := func() (*models.UserWallet, error) {
		return datastore.FindUserWalletByUserID(ctx, service.readonlyPostgresDB, userID)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserWallet(userID), CACHE_TTL_5_MINS, callback)
}

// ConnectTONWallet validates the address format before persisting it. The
// wallet is where battle bets and raid fees must originate.
func (service *ServiceUser) ConnectTONWallet(ctx context.Context, user *models.User, address string) (*models.UserWallet, error) {
	addr, err := tongo.ParseAddress(address)
	if err != nil {
		return nil, errorx.Wrap(errors.New("invalid TON address"), errorx.Validation)
	}

	normalized := addr.ID.String()

	existing, err := datastore.FindUserWalletByTONAddress(ctx, service.readonlyPostgresDB, normalized)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if existing != nil && existing.ID != user.ID {
		return nil, errorx.Wrap(errors.New("wallet already connected to another account"), errorx.Invalid)
	}

	wallet, err := datastore.FindUserWalletByUserID(ctx, service.readonlyPostgresDB, user.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if wallet == nil {
		wallet = &models.UserWallet{ID: user.ID, TONWallet: &normalized, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		wallet, err = datastore.CreateUserWallet(ctx, service.postgresDB, wallet)
	} else {
		wallet.TONWallet = &normalized
		wallet, err = datastore.UpdateUserWallet(ctx, service.postgresDB, wallet)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	_ = service.cache.Delete(ctx, DBKeyUserWallet(user.ID))
	return wallet, nil
}

package services

import (
	"context"
	"log"
	"time"

	"sippets/internal/datastore/redis_store"

	"github.com/redis/go-redis/v9"
)

const NOTIFY_MIN_INTERVAL = time.Minute

// notifyUser pushes a bot message unless the user was pinged within the
// minimum interval. The last-notify marker is written before the send, so a
// failed send still counts against the interval.
func notifyUser(ctx context.Context, redisDB redis.UniversalClient, bot *Bot, userID int64, text string) {
	last, err := redis_store.GetUserLastNotify(ctx, redisDB, userID)
	if err == nil && time.Since(last) < NOTIFY_MIN_INTERVAL {
		return
	}

	if err := redis_store.SetUserLastNotify(ctx, redisDB, userID, time.Now()); err != nil {
		log.Println("SetUserLastNotify:", err)
	}
	if err := bot.SendMsg(userID, text); err != nil {
		log.Println("SendMsg:", err)
	}
}

package main

import (
	"context"
	"log"

	"sippets/internal/services"

	"github.com/robfig/cron/v3"
)

const (
	defaultScheduleTribeScore = "*/10 * * * *"
	defaultScheduleWeekClose  = "0 0 * * 1"
	defaultScheduleRaidSpawn  = "10 0 * * 1"
)

type jobs struct {
	serviceTribeScore *services.ServiceTribeScore
	serviceRaid       *services.ServiceRaid
	serviceConfig     *services.ServiceConfig
}

func (j *jobs) register(runner *cron.Cron) error {
	ctx := context.Background()

	scheduleTribeScore, _ := j.serviceConfig.GetStringConfig(ctx, services.CONFIG_CRONJOB_TIME_TRIBE_SCORE, defaultScheduleTribeScore)
	scheduleWeekClose, _ := j.serviceConfig.GetStringConfig(ctx, services.CONFIG_CRONJOB_TIME_WEEK_CLOSE, defaultScheduleWeekClose)
	scheduleRaidSpawn, _ := j.serviceConfig.GetStringConfig(ctx, services.CONFIG_CRONJOB_TIME_RAID_SPAWN, defaultScheduleRaidSpawn)

	if _, err := runner.AddFunc(scheduleTribeScore, j.recomputeTribeScores); err != nil {
		return err
	}
	if _, err := runner.AddFunc(scheduleWeekClose, j.rolloverWeek); err != nil {
		return err
	}
	if _, err := runner.AddFunc(scheduleRaidSpawn, j.spawnRaid); err != nil {
		return err
	}

	return nil
}

func (j *jobs) recomputeTribeScores() {
	ctx := context.Background()

	week, err := j.serviceTribeScore.EnsureActiveWeek(ctx)
	if err != nil {
		log.Println("recompute tribe scores:", err)
		return
	}

	if _, err := j.serviceTribeScore.Recompute(ctx, week.ID); err != nil {
		log.Println("recompute tribe scores:", err)
	}
}

func (j *jobs) rolloverWeek() {
	ctx := context.Background()

	week, err := j.serviceTribeScore.EnsureActiveWeek(ctx)
	if err != nil {
		log.Println("week rollover:", err)
		return
	}

	next, err := j.serviceTribeScore.Rollover(ctx, week.ID)
	if err != nil {
		log.Println("week rollover:", err)
		return
	}

	log.Println("week rolled over:", week.ID, "->", next.ID)
}

func (j *jobs) spawnRaid() {
	ctx := context.Background()

	week, err := j.serviceTribeScore.EnsureActiveWeek(ctx)
	if err != nil {
		log.Println("spawn raid:", err)
		return
	}

	raid, err := j.serviceRaid.Spawn(ctx, week.ID)
	if err != nil {
		log.Println("spawn raid:", err)
		return
	}

	log.Println("raid spawned:", raid.ID, raid.BossName)
}

package datastore

import (
	"context"
	"testing"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func insertActiveRaid(t *testing.T, db *bun.DB, hp int64) *models.BossRaid {
	t.Helper()
	ctx := context.Background()

	if err := CreateTableBossRaid(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := CreateTableRaidParticipant(ctx, db); err != nil {
		t.Fatal(err)
	}

	raid := &models.BossRaid{
		WeekID:    1,
		BossName:  "Gloom Heron",
		Element:   "shadow",
		HPMax:     hp,
		HPCurrent: hp,
		EntryFee:  500,
		Status:    models.RaidStatusActive,
		CreatedAt: time.Now(),
	}
	raid, err := CreateBossRaid(ctx, db, raid)
	if err != nil {
		t.Fatal(err)
	}
	return raid
}

func TestDecrementRaidHPRequiresLastSeen(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	raid := insertActiveRaid(t, db, 1000)

	ok, err := DecrementRaidHP(ctx, db, raid.ID, 1000, 400)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("decrement from the read HP should land")
	}

	// the second attacker read 1000 too; its swap must miss
	ok, err = DecrementRaidHP(ctx, db, raid.ID, 1000, 700)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("stale decrement should miss")
	}

	stored, err := FindRaidByID(ctx, db, raid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.HPCurrent != 400 {
		t.Fatalf("hp = %d, want 400", stored.HPCurrent)
	}
}

func TestMarkRaidDefeatedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	raid := insertActiveRaid(t, db, 400)

	if ok, err := DecrementRaidHP(ctx, db, raid.ID, 400, 0); err != nil || !ok {
		t.Fatalf("final decrement: ok=%v err=%v", ok, err)
	}

	ok, err := MarkRaidDefeated(ctx, db, raid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first defeat transition should land")
	}

	ok, err = MarkRaidDefeated(ctx, db, raid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second defeat transition should miss the status guard")
	}

	// no decrement can land on a defeated raid
	ok, err = DecrementRaidHP(ctx, db, raid.ID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("decrement on a defeated raid should miss")
	}
}

func TestRaidParticipantUniqueAndClaimOnce(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	raid := insertActiveRaid(t, db, 1000)

	participant := &models.RaidParticipant{
		RaidID:         raid.ID,
		UserID:         7,
		PetID:          70,
		SipContributed: 500,
		CreatedAt:      time.Now(),
	}
	ok, err := CreateRaidParticipant(ctx, db, participant)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first join should insert")
	}

	dup := &models.RaidParticipant{RaidID: raid.ID, UserID: 7, PetID: 70, CreatedAt: time.Now()}
	ok, err = CreateRaidParticipant(ctx, db, dup)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("duplicate join should hit the unique index")
	}

	ok, err = ClaimRaidReward(ctx, db, raid.ID, 7, 4166)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first claim should land")
	}

	ok, err = ClaimRaidReward(ctx, db, raid.ID, 7, 4166)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second claim should miss the reward_claimed guard")
	}
}

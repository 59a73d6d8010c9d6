package datastore

import (
	"context"
	"testing"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func insertPendingBattle(t *testing.T, db *bun.DB) *models.Battle {
	t.Helper()
	ctx := context.Background()

	if err := CreateTableBattle(ctx, db); err != nil {
		t.Fatal(err)
	}

	battle := &models.Battle{
		ID:              "battle-1",
		ChallengerID:    1,
		ChallengerPetID: 11,
		ChallengerPower: 500,
		ChallengerBet:   1000,
		ChallengerTx:    "tx-challenger",
		Status:          models.BattleStatusPending,
		CreatedAt:       time.Now(),
	}
	if _, err := CreateBattle(ctx, db, battle); err != nil {
		t.Fatal(err)
	}
	return battle
}

func settledCopy(battle *models.Battle, defenderID int64) *models.Battle {
	settled := *battle
	petID := defenderID * 10
	power := int64(450)
	bet := int64(990)
	tx := "tx-defender"
	settled.DefenderID = &defenderID
	settled.DefenderPetID = &petID
	settled.DefenderPower = &power
	settled.DefenderBet = &bet
	settled.DefenderTx = &tx
	settled.Status = models.BattleStatusCompleted
	settled.WinnerID = &defenderID
	settled.WinnerPetID = &petID
	settled.PrizePool = 1800
	settled.BurnedAmount = 200
	settled.Replay = []models.ReplayFrame{{Attacker: models.ReplaySideDefender, Damage: 100}}
	return &settled
}

func TestSettleBattleExactlyOnce(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	battle := insertPendingBattle(t, db)

	first := settledCopy(battle, 2)
	ok, err := SettleBattle(ctx, db, first)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first settle should land")
	}

	// a second acceptor racing on the same open battle must lose the guard
	second := settledCopy(battle, 3)
	ok, err = SettleBattle(ctx, db, second)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second settle should miss the status guard")
	}

	stored, err := FindBattleByID(ctx, db, battle.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.BattleStatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.DefenderID == nil || *stored.DefenderID != 2 {
		t.Fatalf("winner of the race should be defender 2, got %v", stored.DefenderID)
	}
}

func TestSettleBattlePersistsDefenderStake(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	battle := insertPendingBattle(t, db)

	ok, err := SettleBattle(ctx, db, settledCopy(battle, 2))
	if err != nil || !ok {
		t.Fatalf("settle: ok=%v err=%v", ok, err)
	}

	stored, err := FindBattleByID(ctx, db, battle.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.DefenderBet == nil || *stored.DefenderBet != 990 {
		t.Fatalf("defender bet not persisted: %v", stored.DefenderBet)
	}
	if stored.DefenderTx == nil || *stored.DefenderTx != "tx-defender" {
		t.Fatalf("defender tx not persisted: %v", stored.DefenderTx)
	}
}

func TestCancelBattleOnlyWhilePending(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	battle := insertPendingBattle(t, db)

	ok, err := CancelBattle(ctx, db, battle.ID, 999)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("cancel by a stranger should not land")
	}

	if ok, err := SettleBattle(ctx, db, settledCopy(battle, 2)); err != nil || !ok {
		t.Fatalf("settle: ok=%v err=%v", ok, err)
	}

	ok, err = CancelBattle(ctx, db, battle.ID, battle.ChallengerID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("cancel after settlement should miss the status guard")
	}
}

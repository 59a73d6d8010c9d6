package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"sippets/internal/datastore"
	"sippets/internal/models"
	"sippets/internal/pkg/gacha"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func testSkillService(t *testing.T) (*ServiceSkill, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := datastore.CreateTablePetSkill(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := datastore.CreateTablePetEvent(ctx, db); err != nil {
		t.Fatal(err)
	}

	choices := make([]gacha.TierChoice, 0, len(models.TierWeights))
	for tier := 1; tier <= 4; tier++ {
		choices = append(choices, gacha.TierChoice{
			Tier:      tier,
			Weight:    models.TierWeights[tier],
			Threshold: models.TierThresholds[tier],
		})
	}

	service := &ServiceSkill{
		rng:          &seqRNG{vals: []float64{0.1}},
		tierSelector: gacha.NewTierSelector(choices),
	}
	return service, db
}

func countRows(t *testing.T, db *bun.DB, model interface{}) int {
	t.Helper()
	n, err := db.NewSelect().Model(model).Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRollAcquisitionCommitsWithCaller(t *testing.T) {
	ctx := context.Background()
	service, db := testSkillService(t)
	pet := &models.Pet{ID: 1, UserID: 10, Tribe: models.TribeChad, Power: 50}

	var roll *models.SkillRollResult
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		roll, err = service.RollAcquisition(ctx, tx, pet, "feed:sig-1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if roll == nil || roll.Outcome != models.SkillRollNewSkill {
		t.Fatalf("roll = %+v, want a new skill", roll)
	}

	if n := countRows(t, db, (*models.PetSkill)(nil)); n != 1 {
		t.Fatalf("pet_skill rows = %d, want 1", n)
	}
	if n := countRows(t, db, (*models.PetEvent)(nil)); n != 1 {
		t.Fatalf("pet_event rows = %d, want 1", n)
	}
}

func TestRollAcquisitionRollsBackWithCaller(t *testing.T) {
	ctx := context.Background()
	service, db := testSkillService(t)
	pet := &models.Pet{ID: 1, UserID: 10, Tribe: models.TribeChad, Power: 50}

	// a feed that fails after the roll must take the grant down with it
	sentinel := errors.New("feed write failed")
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		roll, err := service.RollAcquisition(ctx, tx, pet, "feed:sig-2")
		if err != nil {
			return err
		}
		if roll.Outcome != models.SkillRollNewSkill {
			t.Fatalf("roll = %+v, want a new skill", roll)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want the sentinel", err)
	}

	if n := countRows(t, db, (*models.PetSkill)(nil)); n != 0 {
		t.Fatalf("pet_skill rows = %d, want 0 after rollback", n)
	}
	if n := countRows(t, db, (*models.PetEvent)(nil)); n != 0 {
		t.Fatalf("pet_event rows = %d, want 0 after rollback", n)
	}
}

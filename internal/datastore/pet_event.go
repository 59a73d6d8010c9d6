package datastore

import (
	"context"
	"time"

	"sippets/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePetEvent(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PetEvent)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PetEvent)(nil)).Index("index_pet_event_user_id_type_ref").IfNotExists().Unique().Column("user_id", "type", "ref").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PetEvent)(nil)).Index("index_pet_event_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertPetEvent appends to the event log. The (user_id, type, ref) unique
// index makes a replayed insert a silent no-op, so aggregation over the log
// stays idempotent.
func InsertPetEvent(ctx context.Context, db bun.IDB, event *models.PetEvent) error {
	_, err := db.NewInsert().
		Model(event).
		On("CONFLICT (user_id, type, ref) DO NOTHING").
		Exec(ctx)
	return err
}

func InsertPetEvents(ctx context.Context, db bun.IDB, events []*models.PetEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&events).
		On("CONFLICT (user_id, type, ref) DO NOTHING").
		Exec(ctx)
	return err
}

func GetPetEventsByUserID(ctx context.Context, db *bun.DB, userID int64, limit int, offset int) ([]*models.PetEvent, error) {
	var events []*models.PetEvent
	err := db.NewSelect().
		Model(&events).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func CountTribeEventsByType(ctx context.Context, db *bun.DB, tribe models.Tribe, eventType models.PetEventType, from time.Time, to time.Time) (int64, error) {
	var total int64
	err := db.NewSelect().
		ColumnExpr("COUNT(pe.id)").
		TableExpr("pet_event AS pe").
		Join("JOIN pet AS p ON p.user_id = pe.user_id").
		Where("p.tribe = ?", tribe).
		Where("pe.type = ?", eventType).
		Where("pe.created_at >= ?", from).
		Where("pe.created_at < ?", to).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// monotonicUpdatedAt stamps max(now, previous+1) so every server write moves the row forward.
const monotonicUpdatedAt = "CASE WHEN ? > updated_at THEN ? ELSE updated_at + 1 END"

// UpsertOptions tunes conflict handling for RecordRepository.Upsert.
type UpsertOptions struct {
	// Now is the server timestamp (Unix ms) stamped on every written row.
	Now int64
	// ClearTombstones lets an incoming deleted=false overwrite a stored deleted=true.
	ClearTombstones bool
}

// RecordRepository defines persistence operations for food records.
type RecordRepository interface {
	List(ctx context.Context, scope Scope, q Query) ([]models.Record, error)
	Get(ctx context.Context, scope Scope, id string) (*models.Record, error)
	// MaxUpdatedAt returns the largest updated_at in scope, or 0 when empty.
	MaxUpdatedAt(ctx context.Context, scope Scope) (int64, error)
	// Upsert inserts or replaces records keyed by id. Rows owned by a different
	// user are left untouched and counted as skipped.
	Upsert(ctx context.Context, scope Scope, records []models.Record, opts UpsertOptions) (upserted, skipped int64, err error)
	// MarkDeleted tombstones the scope owner's live rows whose local_id is in localIDs.
	MarkDeleted(ctx context.Context, scope Scope, localIDs []string, now int64) (int64, error)
	// SoftDelete tombstones one row by id.
	SoftDelete(ctx context.Context, scope Scope, id string, now int64) error
	// Transaction runs fn against a repository bound to a single transaction.
	Transaction(ctx context.Context, fn func(RecordRepository) error) error
}

type recordRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db, log: observability.NewRepoLogger("records")}
}

func (r *recordRepository) scoped(ctx context.Context, scope Scope) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.Record{})
	if !scope.IsService() {
		db = db.Where("user_id = ?", scope.UserID())
	}
	return db
}

func (r *recordRepository) List(ctx context.Context, scope Scope, q Query) ([]models.Record, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	defer observability.TrackQuery("list", "records")()

	records := []models.Record{}
	if err := q.apply(r.scoped(ctx, scope)).Find(&records).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, storageError(err)
	}
	return records, nil
}

func (r *recordRepository) MaxUpdatedAt(ctx context.Context, scope Scope) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	defer observability.TrackQuery("max_updated_at", "records")()

	var maxUpdatedAt int64
	if err := r.scoped(ctx, scope).Select("COALESCE(MAX(updated_at), 0)").Scan(&maxUpdatedAt).Error; err != nil {
		r.log.LogError(ctx, err, "max_updated_at")
		return 0, storageError(err)
	}
	return maxUpdatedAt, nil
}

func (r *recordRepository) Get(ctx context.Context, scope Scope, id string) (*models.Record, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	defer observability.TrackQuery("get", "records")()

	var rec models.Record
	if err := r.scoped(ctx, scope).Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Record not found")
		}
		r.log.LogError(ctx, err, "get")
		return nil, storageError(err)
	}
	return &rec, nil
}

func (r *recordRepository) Upsert(ctx context.Context, scope Scope, records []models.Record, opts UpsertOptions) (int64, int64, error) {
	if err := scope.validate(); err != nil {
		return 0, 0, err
	}
	if len(records) == 0 {
		return 0, 0, nil
	}
	defer observability.TrackQuery("upsert", "records")()

	rows := make([]models.Record, len(records))
	for i, rec := range records {
		if !scope.IsService() {
			rec.UserID = scope.UserID()
		}
		if rec.UserID == "" {
			return 0, 0, models.NewInvalidOperationError("Record owner is required")
		}
		rec.CreatedAt = opts.Now
		rec.UpdatedAt = opts.Now
		rows[i] = rec
	}

	deleted := "records.deleted OR excluded.deleted"
	if opts.ClearTombstones {
		deleted = "excluded.deleted"
	}

	set := clause.AssignmentColumns(models.PayloadColumns)
	set = append(set,
		clause.Assignment{Column: clause.Column{Name: "deleted"}, Value: gorm.Expr(deleted)},
		clause.Assignment{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr(
			"CASE WHEN excluded.updated_at > records.updated_at THEN excluded.updated_at ELSE records.updated_at + 1 END")},
	)

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: set,
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "records.user_id = excluded.user_id"},
		}},
	}).Create(&rows)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "upsert")
		return 0, 0, storageError(res.Error)
	}

	upserted := res.RowsAffected
	skipped := int64(len(rows)) - upserted
	if skipped < 0 {
		skipped = 0
	}
	r.log.LogUpdate(ctx, map[string]any{"op": "upsert", "upserted": upserted, "skipped": skipped})
	return upserted, skipped, nil
}

func (r *recordRepository) MarkDeleted(ctx context.Context, scope Scope, localIDs []string, now int64) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	if len(localIDs) == 0 {
		return 0, nil
	}
	defer observability.TrackQuery("mark_deleted", "records")()

	res := r.scoped(ctx, scope).
		Where("local_id IN ?", localIDs).
		Where("deleted = ?", false).
		Updates(map[string]any{
			"deleted":    true,
			"updated_at": gorm.Expr(monotonicUpdatedAt, now, now),
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "mark_deleted")
		return 0, storageError(res.Error)
	}
	r.log.LogDelete(ctx, map[string]any{"op": "mark_deleted", "rows": res.RowsAffected})
	return res.RowsAffected, nil
}

func (r *recordRepository) SoftDelete(ctx context.Context, scope Scope, id string, now int64) error {
	if err := scope.validate(); err != nil {
		return err
	}
	defer observability.TrackQuery("soft_delete", "records")()

	res := r.scoped(ctx, scope).
		Where("id = ?", id).
		Where("deleted = ?", false).
		Updates(map[string]any{
			"deleted":    true,
			"updated_at": gorm.Expr(monotonicUpdatedAt, now, now),
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "soft_delete")
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Record not found")
	}
	r.log.LogDelete(ctx, map[string]any{"op": "soft_delete", "id": id})
	return nil
}

func (r *recordRepository) Transaction(ctx context.Context, fn func(RecordRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&recordRepository{db: tx, log: r.log})
	})
}

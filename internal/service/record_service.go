package service

import (
	"context"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"github.com/google/uuid"
)

// RecordService provides single-record CRUD scoped to the caller. Every write
// stamps updated_at so it is visible to sync pulls.
type RecordService struct {
	records repository.RecordRepository
	now     func() time.Time
}

// NewRecordService returns a new RecordService.
func NewRecordService(records repository.RecordRepository) *RecordService {
	return &RecordService{records: records, now: time.Now}
}

// List returns the caller's live records, most recently updated first.
func (s *RecordService) List(ctx context.Context, userID string, limit int) ([]models.Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	return s.records.List(ctx, repository.CallerScope(userID), repository.Query{
		Filters: []repository.Filter{repository.Eq("deleted", false)},
		Order:   []repository.Order{{Column: "updated_at", Desc: true}, {Column: "id"}},
		Limit:   limit,
	})
}

// Get returns one of the caller's records. Tombstoned records are not found.
func (s *RecordService) Get(ctx context.Context, userID, id string) (*models.Record, error) {
	rec, err := s.records.Get(ctx, repository.CallerScope(userID), id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, models.NewNotFoundError("Record not found")
	}
	return rec, nil
}

// Create stores a new record owned by the caller.
func (s *RecordService) Create(ctx context.Context, userID string, rec models.Record) (*models.Record, error) {
	scope := repository.CallerScope(userID)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := s.records.Get(ctx, scope, rec.ID); err == nil {
		return nil, models.NewConflictError("Record already exists")
	} else if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}

	rec.Deleted = false
	upserted, _, err := s.records.Upsert(ctx, scope, []models.Record{rec}, repository.UpsertOptions{Now: s.now().UnixMilli()})
	if err != nil {
		return nil, err
	}
	if upserted == 0 {
		return nil, models.NewConflictError("Record already exists")
	}
	return s.records.Get(ctx, scope, rec.ID)
}

// Replace overwrites every payload field of the caller's live record id.
func (s *RecordService) Replace(ctx context.Context, userID, id string, rec models.Record) (*models.Record, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	scope := repository.CallerScope(userID)
	rec.ID = id
	rec.Deleted = false
	if _, _, err := s.records.Upsert(ctx, scope, []models.Record{rec}, repository.UpsertOptions{Now: s.now().UnixMilli()}); err != nil {
		return nil, err
	}
	return s.records.Get(ctx, scope, id)
}

// Delete tombstones the caller's record id.
func (s *RecordService) Delete(ctx context.Context, userID, id string) error {
	return s.records.SoftDelete(ctx, repository.CallerScope(userID), id, s.now().UnixMilli())
}

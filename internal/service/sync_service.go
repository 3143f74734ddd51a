package service

import (
	"context"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/featureflags"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/observability"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// SyncService implements the pull/push protocol for food records.
type SyncService struct {
	records repository.RecordRepository
	flags   *featureflags.Manager
	skewMS  int64
	now     func() time.Time
}

// NewSyncService returns a new SyncService. skewMS is subtracted from every
// pull cursor, deferring rows stamped within that window to the next pull.
func NewSyncService(records repository.RecordRepository, flags *featureflags.Manager, skewMS int64) *SyncService {
	if skewMS < 0 {
		skewMS = 0
	}
	return &SyncService{
		records: records,
		flags:   flags,
		skewMS:  skewMS,
		now:     time.Now,
	}
}

// Pull returns the caller's records with since < updated_at <= cursor,
// tombstones included, and the cursor to use on the next pull.
func (s *SyncService) Pull(ctx context.Context, userID string, since int64) (res *models.PullResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SyncService", "Pull",
		attribute.String("user.id", userID),
		attribute.Int64("sync.since", since),
	)
	defer func() { observability.EndSpan(span, err) }()

	if since < 0 {
		since = 0
	}
	// Captured before the read: rows committed later carry a larger
	// updated_at and are picked up by the next pull. Repeated writes within
	// one millisecond are stamped ahead of the clock, so the cursor never
	// trails the newest committed row.
	latest, err := s.records.MaxUpdatedAt(ctx, repository.CallerScope(userID))
	if err != nil {
		return nil, err
	}
	cursor := max(s.now().UnixMilli(), latest) - s.skewMS

	data, err := s.records.List(ctx, repository.CallerScope(userID), repository.Query{
		Filters: []repository.Filter{
			repository.Gt("updated_at", since),
			repository.Lte("updated_at", cursor),
		},
		Order: []repository.Order{{Column: "updated_at"}, {Column: "id"}},
	})
	if err != nil {
		return nil, err
	}

	observability.SyncPulledRecords.Add(float64(len(data)))
	span.SetAttributes(attribute.Int("sync.pulled", len(data)), attribute.Int64("sync.cursor", cursor))
	return &models.PullResult{Data: data, Timestamp: cursor}, nil
}

// Push applies a client change set: created and updated records are upserted
// as the caller's, then records whose local id is listed in deleted are
// tombstoned. Both steps commit together.
func (s *SyncService) Push(ctx context.Context, userID string, changes models.PushChanges) (res *models.PushResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SyncService", "Push",
		attribute.String("user.id", userID),
		attribute.Int("sync.created", len(changes.Created)),
		attribute.Int("sync.updated", len(changes.Updated)),
		attribute.Int("sync.deleted", len(changes.Deleted)),
	)
	defer func() { observability.EndSpan(span, err) }()

	batch := mergeBatch(userID, changes.Created, changes.Updated)
	deleted := uniqueNonEmpty(changes.Deleted)
	opts := repository.UpsertOptions{
		Now:             s.now().UnixMilli(),
		ClearTombstones: s.flags.Enabled(featureflags.SyncResurrectOnPush, userID),
	}

	res = &models.PushResult{}
	scope := repository.CallerScope(userID)
	err = s.records.Transaction(ctx, func(tx repository.RecordRepository) error {
		var txErr error
		res.Upserted, res.Skipped, txErr = tx.Upsert(ctx, scope, batch, opts)
		if txErr != nil {
			return txErr
		}
		res.Deleted, txErr = tx.MarkDeleted(ctx, scope, deleted, opts.Now)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	observability.SyncPushedRecords.WithLabelValues("upserted").Add(float64(res.Upserted))
	observability.SyncPushedRecords.WithLabelValues("skipped").Add(float64(res.Skipped))
	observability.SyncPushedRecords.WithLabelValues("deleted").Add(float64(res.Deleted))
	return res, nil
}

// mergeBatch joins created and updated into one batch owned by userID. A
// repeated id keeps its first position and its last value. Missing ids are generated.
func mergeBatch(userID string, lists ...[]models.Record) []models.Record {
	var out []models.Record
	index := make(map[string]int)
	for _, list := range lists {
		for _, rec := range list {
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			rec.UserID = userID
			if i, ok := index[rec.ID]; ok {
				out[i] = rec
				continue
			}
			index[rec.ID] = len(out)
			out = append(out, rec)
		}
	}
	return out
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

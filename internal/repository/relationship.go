package repository

import (
	"context"
	"errors"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/observability"

	"gorm.io/gorm"
)

// RelationshipRepository defines persistence operations for relationship rows.
// Every call carries a Scope; in caller scope only rows touching the caller are visible.
type RelationshipRepository interface {
	// FindPair returns the row for the unordered pair {a, b}, or nil when none exists.
	FindPair(ctx context.Context, scope Scope, a, b string) (*models.Relationship, error)
	// Insert creates rel. It returns ErrDuplicate when a row for the pair already exists.
	Insert(ctx context.Context, scope Scope, rel *models.Relationship) error
	// UpdateStatus moves row id from one status to another. It reports false when
	// no row matched (already moved or deleted).
	UpdateStatus(ctx context.Context, scope Scope, id string, from, to models.RelationshipStatus) (bool, error)
	// DeleteWithStatus deletes row id only while it has status. It reports false when no row matched.
	DeleteWithStatus(ctx context.Context, scope Scope, id string, status models.RelationshipStatus) (bool, error)
	List(ctx context.Context, scope Scope, q Query) ([]models.Relationship, error)
}

type relationshipRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db, log: observability.NewRepoLogger("relationships")}
}

func (r *relationshipRepository) scoped(ctx context.Context, scope Scope) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.Relationship{})
	if !scope.IsService() {
		db = db.Where("user_id = ? OR friend_id = ?", scope.UserID(), scope.UserID())
	}
	return db
}

func (r *relationshipRepository) FindPair(ctx context.Context, scope Scope, a, b string) (*models.Relationship, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	defer observability.TrackQuery("find_pair", "relationships")()

	low, high := models.PairKey(a, b)
	var rel models.Relationship
	err := r.scoped(ctx, scope).
		Where("pair_low = ? AND pair_high = ?", low, high).
		Take(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.LogError(ctx, err, "find_pair")
		return nil, storageError(err)
	}
	return &rel, nil
}

func (r *relationshipRepository) Insert(ctx context.Context, scope Scope, rel *models.Relationship) error {
	if err := scope.validate(); err != nil {
		return err
	}
	if !scope.IsService() && rel.UserID != scope.UserID() && rel.FriendID != scope.UserID() {
		return models.NewForbiddenError("Cannot create a relationship for other users")
	}
	defer observability.TrackQuery("insert", "relationships")()

	if err := r.db.WithContext(ctx).Create(rel).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		r.log.LogError(ctx, err, "insert")
		return storageError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": rel.ID, "status": rel.Status})
	return nil
}

func (r *relationshipRepository) UpdateStatus(ctx context.Context, scope Scope, id string, from, to models.RelationshipStatus) (bool, error) {
	if err := scope.validate(); err != nil {
		return false, err
	}
	defer observability.TrackQuery("update_status", "relationships")()

	res := r.scoped(ctx, scope).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update_status")
		return false, storageError(res.Error)
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id, "from": from, "to": to, "rows": res.RowsAffected})
	return res.RowsAffected > 0, nil
}

func (r *relationshipRepository) DeleteWithStatus(ctx context.Context, scope Scope, id string, status models.RelationshipStatus) (bool, error) {
	if err := scope.validate(); err != nil {
		return false, err
	}
	defer observability.TrackQuery("delete", "relationships")()

	db := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, status)
	if !scope.IsService() {
		db = db.Where("user_id = ? OR friend_id = ?", scope.UserID(), scope.UserID())
	}
	res := db.Delete(&models.Relationship{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return false, storageError(res.Error)
	}
	r.log.LogDelete(ctx, map[string]any{"id": id, "status": status, "rows": res.RowsAffected})
	return res.RowsAffected > 0, nil
}

func (r *relationshipRepository) List(ctx context.Context, scope Scope, q Query) ([]models.Relationship, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	defer observability.TrackQuery("list", "relationships")()

	var rels []models.Relationship
	if err := q.apply(r.scoped(ctx, scope)).Find(&rels).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, storageError(err)
	}
	return rels, nil
}

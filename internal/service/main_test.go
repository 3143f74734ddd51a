package service

import (
	"context"
	"testing"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/config"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/database"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/observability"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	observability.Config.EnableRepoLogging = false
	m.Run()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{DBDriver: "sqlite", DBSQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.ApplySchema(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type relationshipRepoStub struct {
	repository.RelationshipRepository
	findPairFn         func(context.Context, repository.Scope, string, string) (*models.Relationship, error)
	insertFn           func(context.Context, repository.Scope, *models.Relationship) error
	updateStatusFn     func(context.Context, repository.Scope, string, models.RelationshipStatus, models.RelationshipStatus) (bool, error)
	deleteWithStatusFn func(context.Context, repository.Scope, string, models.RelationshipStatus) (bool, error)
	listFn             func(context.Context, repository.Scope, repository.Query) ([]models.Relationship, error)
}

func (s *relationshipRepoStub) FindPair(ctx context.Context, scope repository.Scope, a, b string) (*models.Relationship, error) {
	if s.findPairFn != nil {
		return s.findPairFn(ctx, scope, a, b)
	}
	return s.RelationshipRepository.FindPair(ctx, scope, a, b)
}

func (s *relationshipRepoStub) Insert(ctx context.Context, scope repository.Scope, rel *models.Relationship) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, scope, rel)
	}
	return s.RelationshipRepository.Insert(ctx, scope, rel)
}

func (s *relationshipRepoStub) UpdateStatus(ctx context.Context, scope repository.Scope, id string, from, to models.RelationshipStatus) (bool, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, scope, id, from, to)
	}
	return s.RelationshipRepository.UpdateStatus(ctx, scope, id, from, to)
}

func (s *relationshipRepoStub) DeleteWithStatus(ctx context.Context, scope repository.Scope, id string, status models.RelationshipStatus) (bool, error) {
	if s.deleteWithStatusFn != nil {
		return s.deleteWithStatusFn(ctx, scope, id, status)
	}
	return s.RelationshipRepository.DeleteWithStatus(ctx, scope, id, status)
}

func (s *relationshipRepoStub) List(ctx context.Context, scope repository.Scope, q repository.Query) ([]models.Relationship, error) {
	if s.listFn != nil {
		return s.listFn(ctx, scope, q)
	}
	return s.RelationshipRepository.List(ctx, scope, q)
}

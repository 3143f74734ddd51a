package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipRepository_InsertAndFindPair(t *testing.T) {
	repo := NewRelationshipRepository(newTestDB(t))
	ctx := context.Background()

	rel := &models.Relationship{UserID: "bob", FriendID: "alice", RequestedBy: "bob", Status: models.RelationshipStatusPending}
	require.NoError(t, repo.Insert(ctx, CallerScope("bob"), rel))
	assert.NotEmpty(t, rel.ID)
	assert.Equal(t, "alice", rel.PairLow)
	assert.Equal(t, "bob", rel.PairHigh)

	t.Run("found from either side", func(t *testing.T) {
		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			got, err := repo.FindPair(ctx, CallerScope(pair[0]), pair[0], pair[1])
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, rel.ID, got.ID)
		}
	})

	t.Run("absent pair is nil", func(t *testing.T) {
		got, err := repo.FindPair(ctx, CallerScope("alice"), "alice", "carol")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invisible to outsiders", func(t *testing.T) {
		got, err := repo.FindPair(ctx, CallerScope("carol"), "alice", "bob")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.FindPair(ctx, ServiceScope(), "alice", "bob")
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("reverse insert is a duplicate", func(t *testing.T) {
		dup := &models.Relationship{UserID: "alice", FriendID: "bob", RequestedBy: "alice", Status: models.RelationshipStatusPending}
		err := repo.Insert(ctx, CallerScope("alice"), dup)
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("cannot insert for others", func(t *testing.T) {
		other := &models.Relationship{UserID: "dave", FriendID: "erin", RequestedBy: "dave", Status: models.RelationshipStatusPending}
		err := repo.Insert(ctx, CallerScope("alice"), other)
		assert.True(t, models.IsCode(err, models.CodeForbidden))
	})

	t.Run("caller scope without id", func(t *testing.T) {
		_, err := repo.FindPair(ctx, CallerScope(""), "alice", "bob")
		assert.True(t, models.IsCode(err, models.CodeUnauthenticated))
	})
}

func TestRelationshipRepository_ConditionalWrites(t *testing.T) {
	repo := NewRelationshipRepository(newTestDB(t))
	ctx := context.Background()

	rel := &models.Relationship{UserID: "alice", FriendID: "bob", RequestedBy: "alice", Status: models.RelationshipStatusPending}
	require.NoError(t, repo.Insert(ctx, CallerScope("alice"), rel))

	ok, err := repo.UpdateStatus(ctx, CallerScope("carol"), rel.ID, models.RelationshipStatusPending, models.RelationshipStatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok, "outsider must not match the row")

	ok, err = repo.UpdateStatus(ctx, CallerScope("bob"), rel.ID, models.RelationshipStatusPending, models.RelationshipStatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, CallerScope("bob"), rel.ID, models.RelationshipStatusPending, models.RelationshipStatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok, "second accept finds no pending row")

	ok, err = repo.DeleteWithStatus(ctx, CallerScope("alice"), rel.ID, models.RelationshipStatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteWithStatus(ctx, CallerScope("alice"), rel.ID, models.RelationshipStatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindPair(ctx, CallerScope("alice"), "alice", "bob")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRelationshipRepository_List(t *testing.T) {
	repo := NewRelationshipRepository(newTestDB(t))
	ctx := context.Background()

	for _, r := range []*models.Relationship{
		{UserID: "alice", FriendID: "bob", RequestedBy: "alice", Status: models.RelationshipStatusAccepted},
		{UserID: "carol", FriendID: "alice", RequestedBy: "carol", Status: models.RelationshipStatusPending},
		{UserID: "bob", FriendID: "carol", RequestedBy: "bob", Status: models.RelationshipStatusAccepted},
	} {
		require.NoError(t, repo.Insert(ctx, ServiceScope(), r))
	}

	accepted, err := repo.List(ctx, CallerScope("alice"), Query{
		Filters: []Filter{Eq("status", models.RelationshipStatusAccepted)},
	})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "bob", accepted[0].Other("alice"))

	all, err := repo.List(ctx, CallerScope("alice"), Query{
		Filters: []Filter{In("status", []models.RelationshipStatus{models.RelationshipStatusAccepted, models.RelationshipStatusPending})},
		Order:   []Order{{Column: "created_at", Desc: true}},
	})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	everyone, err := repo.List(ctx, ServiceScope(), Query{Filters: []Filter{Neq("status", models.RelationshipStatusBlocked)}, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, everyone, 2)
}

func TestRelationshipRepository_PostgresShape(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "relationships" WHERE (user_id = $1 OR friend_id = $2) AND (pair_low = $3 AND pair_high = $4)`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "friend_id", "requested_by", "status"}).
			AddRow("r1", "bob", "alice", "bob", "pending"))

	rel, err := repo.FindPair(context.Background(), CallerScope("alice"), "bob", "alice")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "r1", rel.ID)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "relationships" SET "status"=$1,"updated_at"=$2 WHERE (user_id = $3 OR friend_id = $4) AND (id = $5 AND status = $6)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.UpdateStatus(context.Background(), CallerScope("alice"), "r1", models.RelationshipStatusPending, models.RelationshipStatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipRepository_PostgresUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "relationships"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Insert(context.Background(), ServiceScope(), &models.Relationship{
		UserID: "alice", FriendID: "bob", RequestedBy: "alice", Status: models.RelationshipStatusPending,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique", &pgconn.PgError{Code: "23505"}, true},
		{"pg other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: relationships.pair_low"), true},
		{"plain", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestStorageError_KeepsAppErrors(t *testing.T) {
	notFound := models.NewNotFoundError("x")
	assert.Same(t, notFound, storageError(notFound))

	wrapped := storageError(errors.New("boom"))
	assert.True(t, models.IsCode(wrapped, models.CodeStorage))
}

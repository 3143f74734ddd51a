package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/config"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool_SQLiteSingleConnection(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(&config.Config{
		DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "pw", DBName: "food",
	})
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=food sslmode=disable", dsn)
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: "sqlite", DBSQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestApplySchema_SQLiteAutoMigrate(t *testing.T) {
	db, err := Connect(&config.Config{DBDriver: "sqlite", DBSQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, ApplySchema(context.Background(), db))

	for _, table := range []string{"users", "relationships", "records"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Relationship{}, "idx_relationships_pair"))
}

func TestPersistentModels(t *testing.T) {
	var names []string
	for _, m := range PersistentModels() {
		switch m.(type) {
		case *models.User:
			names = append(names, "user")
		case *models.Relationship:
			names = append(names, "relationship")
		case *models.Record:
			names = append(names, "record")
		}
	}
	assert.ElementsMatch(t, []string{"user", "relationship", "record"}, names)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "000001_init", all[0].String())
	assert.Contains(t, all[0].UpScript, "idx_relationships_pair")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS records")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("up2")},
		"m/000002_second.down.sql": {Data: []byte("down2")},
		"m/000001_first.up.sql":    {Data: []byte("up1")},
		"m/000001_first.down.sql":  {Data: []byte("down1")},
		"m/README.md":              {Data: []byte("ignored")},
		"m/bad.up.sql":             {Data: []byte("ignored")},
	}

	out, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Version)
	assert.Equal(t, "first", out[0].Name)
	assert.Equal(t, "down2", out[1].DownScript)

	_, err = LoadMigrations(fstest.MapFS{"m/000001_x.up.sql": {Data: []byte("up")}}, "m")
	assert.Error(t, err, "missing down script")
}

type fakeMigrationStore struct {
	applied  []int
	ran      []int
	reverted []int
	failOn   int
}

func (f *fakeMigrationStore) GetAppliedMigrations(context.Context) ([]int, error) {
	return f.applied, nil
}

func (f *fakeMigrationStore) ApplyMigration(_ context.Context, m Migration) error {
	if m.Version == f.failOn {
		return errors.New("boom")
	}
	f.ran = append(f.ran, m.Version)
	f.applied = append(f.applied, m.Version)
	return nil
}

func (f *fakeMigrationStore) RevertMigration(_ context.Context, m Migration) error {
	f.reverted = append(f.reverted, m.Version)
	return nil
}

func TestApplyPending(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}

	store := &fakeMigrationStore{applied: []int{1}}
	require.NoError(t, applyPending(context.Background(), store, registered))
	assert.Equal(t, []int{2, 3}, store.ran)

	store = &fakeMigrationStore{failOn: 2}
	assert.Error(t, applyPending(context.Background(), store, registered))
	assert.Equal(t, []int{1}, store.ran, "stops at the first failure")

	store = &fakeMigrationStore{applied: []int{1, 7}}
	err := applyPending(context.Background(), store, registered)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "000007"))
}

func TestRollback(t *testing.T) {
	store := &fakeMigrationStore{applied: []int{1}}
	require.NoError(t, rollback(context.Background(), store, 1))
	assert.Equal(t, []int{1}, store.reverted)

	assert.Error(t, rollback(context.Background(), &fakeMigrationStore{}, 1), "not applied")
	assert.Error(t, rollback(context.Background(), store, 999), "unknown version")
}

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	db, err := postgres.Connect(ctx, getDSN(pool), cloudpad.Tables{MetaData: "metadata"})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.NoError(t, db.Ping(ctx), "ping should succeed after connect")
}

func TestDatabase_MigrateAndDrop(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tables := cloudpad.Tables{MetaData: "migrate_" + getRandomString(t)}
	defer func() { _ = dropTable(ctx, pool, tables.MetaData) }()

	require.NoError(t, postgres.Migrate(ctx, pool, tables))
	require.NoError(t, postgres.Migrate(ctx, pool, tables), "migrate should be idempotent")
	require.NoError(t, postgres.ValidateSchema(ctx, pool, tables))

	var indexExists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT FROM pg_indexes WHERE tablename = $1 AND indexname = $2)
	`, tables.MetaData, "idx_"+tables.MetaData+"_updated_at").Scan(&indexExists)
	require.NoError(t, err)
	assert.True(t, indexExists)

	require.NoError(t, postgres.DropTables(ctx, pool, tables))
	assert.Error(t, postgres.ValidateSchema(ctx, pool, tables), "table should be gone")
}

func TestDatabase_Validate(t *testing.T) {
	pool := getSharedTestDatabase(t)
	dsn := getDSN(pool)
	ctx := context.Background()

	t.Run("success - valid schema after migrate", func(t *testing.T) {
		tableName := "validate_" + getRandomString(t)
		db, err := postgres.Connect(ctx, dsn, cloudpad.Tables{MetaData: tableName})
		require.NoError(t, err)
		defer func() {
			_ = db.Close()
			_ = dropTable(ctx, pool, tableName)
		}()

		require.NoError(t, db.Migrate(ctx))
		assert.NoError(t, db.Validate(ctx))
	})

	t.Run("error - table does not exist", func(t *testing.T) {
		db, err := postgres.Connect(ctx, dsn, cloudpad.Tables{MetaData: "nonexistent_table"})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.Error(t, db.Validate(ctx))
	})

	t.Run("error - missing columns", func(t *testing.T) {
		tableName := "incomplete_" + getRandomString(t)
		_, err := pool.Exec(ctx, `CREATE TABLE `+tableName+` (id UUID PRIMARY KEY, object_key TEXT NOT NULL)`)
		require.NoError(t, err)
		defer func() { _ = dropTable(ctx, pool, tableName) }()

		db, err := postgres.Connect(ctx, dsn, cloudpad.Tables{MetaData: tableName})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		err = db.Validate(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing column custom_metadata")
	})

	t.Run("error - wrong column type", func(t *testing.T) {
		tableName := "wrongtype_" + getRandomString(t)
		_, err := pool.Exec(ctx, `
			CREATE TABLE `+tableName+` (
				id UUID PRIMARY KEY,
				object_key TEXT NOT NULL,
				content_type TEXT NOT NULL,
				etag TEXT NOT NULL,
				size_bytes TEXT NOT NULL,
				cache_control TEXT NOT NULL,
				custom_metadata JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)
		`)
		require.NoError(t, err)
		defer func() { _ = dropTable(ctx, pool, tableName) }()

		db, err := postgres.Connect(ctx, dsn, cloudpad.Tables{MetaData: tableName})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		err = db.Validate(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "size_bytes")
	})
}

func TestDatabase_Close(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	db, err := postgres.Connect(ctx, getDSN(pool), cloudpad.Tables{MetaData: "close_test"})
	require.NoError(t, err)

	assert.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx), "ping should fail after close")
}

func TestRepo_Upsert(t *testing.T) {
	t.Run("insert - creates new entry", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		m, inserted, err := repo.Upsert(ctx, cloudpad.ObjectEntry{
			Key:            "notes/today.md",
			Size:           42,
			ETag:           "etag1",
			ContentType:    "text/markdown",
			CacheControl:   "max-age=60",
			CustomMetadata: map[string]string{"author": "me"},
		})
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NotZero(t, m.ID)
		assert.Equal(t, "notes/today.md", m.Key)
		assert.Equal(t, int64(42), m.Size)
		assert.Equal(t, "max-age=60", m.CacheControl)
		assert.Equal(t, map[string]string{"author": "me"}, m.CustomMetadata)
		assert.WithinDuration(t, time.Now(), m.CreatedAt, time.Minute)
	})

	t.Run("update - replaces fields and keeps identity", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()

		first, inserted, err := repo.Upsert(ctx, cloudpad.ObjectEntry{
			Key: "a.txt", Size: 1, ETag: "e1", ContentType: "text/plain",
			CustomMetadata: map[string]string{"k": "v"},
		})
		require.NoError(t, err)
		require.True(t, inserted)

		second, inserted, err := repo.Upsert(ctx, cloudpad.ObjectEntry{
			Key: "a.txt", Size: 2, ETag: "e2", ContentType: "application/json",
		})
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
		assert.Equal(t, "e2", second.ETag)
		assert.Nil(t, second.CustomMetadata)
	})
}

func TestRepo_Get(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, _, err := repo.Upsert(ctx, cloudpad.ObjectEntry{Key: "a b/c.txt", Size: 3, ETag: "e", ContentType: "text/plain"})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "a b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Key, got.Key)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)
}

func TestRepo_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.Upsert(ctx, cloudpad.ObjectEntry{Key: "a.txt", Size: 1, ETag: "e", ContentType: "text/plain"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "a.txt"))

	_, err = repo.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, cloudpad.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "a.txt"), cloudpad.ErrNotFound)
}

func TestRepo_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	for _, key := range []string{"zeta.txt", "Alpha.txt", "beta/c.txt"} {
		_, _, err := repo.Upsert(ctx, cloudpad.ObjectEntry{Key: key, Size: 1, ETag: "e", ContentType: "text/plain"})
		require.NoError(t, err)
	}

	items, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Alpha.txt", items[0].Key)
	assert.Equal(t, "beta/c.txt", items[1].Key)
	assert.Equal(t, "zeta.txt", items[2].Key)
}

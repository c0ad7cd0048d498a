package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// TestDB represents a test database connection
type TestDB struct {
	Pool *pgxpool.Pool
}

// NewTestDB creates a new test database connection. Tests are skipped when
// TEST_DATABASE_URL is not set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")

	err = pool.Ping(ctx)
	require.NoError(t, err, "Failed to ping test database")

	return &TestDB{Pool: pool}
}

// Setup initializes the test database with required schema and tables
func (db *TestDB) Setup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS media_assets (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			owner_id UUID NOT NULL,
			status VARCHAR(50) NOT NULL,
			storage_meta JSONB NOT NULL DEFAULT '{}',
			public_meta JSONB NOT NULL DEFAULT '{}',
			formats JSONB,
			enriched BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
			updated_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
			deleted_at TIMESTAMP
		)
	`)
	require.NoError(t, err, "Failed to create media_assets table")

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS media_thumbnails (
			id UUID PRIMARY KEY,
			asset_id UUID NOT NULL REFERENCES media_assets(id),
			bucket VARCHAR(255),
			url TEXT NOT NULL,
			position INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
		)
	`)
	require.NoError(t, err, "Failed to create media_thumbnails table")

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS collection_media (
			position BIGSERIAL PRIMARY KEY,
			kind VARCHAR(50) NOT NULL,
			target_id UUID NOT NULL,
			asset_id UUID NOT NULL REFERENCES media_assets(id),
			created_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
		)
	`)
	require.NoError(t, err, "Failed to create collection_media table")

	for _, table := range []string{"posts", "groups", "communities", "domains", "points"} {
		_, err = db.Pool.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS `+table+` (
				id UUID PRIMARY KEY,
				created_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
			)
		`)
		require.NoError(t, err, "Failed to create %s table", table)
	}
}

// Teardown cleans up test data
func (db *TestDB) Teardown(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	for _, table := range []string{"collection_media", "media_thumbnails", "media_assets", "posts", "groups", "communities", "domains", "points"} {
		_, err := db.Pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err, "Failed to clean %s table", table)
	}

	db.Pool.Close()
}

package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyFromScratchCreatesDirsTable(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Apply(ctx, db))

	var name string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='dirs'").Scan(&name)
	assert.NoError(t, err)
	assert.Equal(t, "dirs", name)

	var version int
	assert.NoError(t, db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, schemaVersion(), version)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Apply(ctx, db))
	assert.Nil(t, Apply(ctx, db))

	var version int
	assert.NoError(t, db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, schemaVersion(), version)
}

func TestApplyRefusesNewerSchema(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Apply(ctx, db))

	_, err := db.ExecContext(ctx, "PRAGMA user_version=999")
	assert.NoError(t, err)

	cause := Apply(ctx, db)
	assert.NotNil(t, cause)
	assert.Contains(t, cause.Message, "newer than application")
}

func TestApplyWritesEndiannessMarkerOnce(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Apply(ctx, db))

	var first int
	assert.NoError(t, db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key='little_endian'").Scan(&first))

	assert.Nil(t, Apply(ctx, db))

	var second int
	assert.NoError(t, db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key='little_endian'").Scan(&second))
	assert.Equal(t, first, second)
}

func TestApplyCreatesDecayTrigger(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Apply(ctx, db))

	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='trigger' AND name LIKE 'trigger_decay%'").Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

package sqlh

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/lynlevenick/zsql/internal/errs"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecCreatesTable(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	cause := Exec(ctx, db, "CREATE TABLE t(id INTEGER PRIMARY KEY)")
	assert.Nil(t, cause)

	cause = Exec(ctx, db, "INSERT INTO t(id) VALUES(?)", 1)
	assert.Nil(t, cause)
}

func TestExecReportsSyntaxError(t *testing.T) {
	db := openMemDB(t)
	cause := Exec(context.Background(), db, "NOT VALID SQL")
	assert.NotNil(t, cause)
}

func TestQueryRowScansValue(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Exec(ctx, db, "CREATE TABLE t(id INTEGER PRIMARY KEY, name TEXT)"))
	assert.Nil(t, Exec(ctx, db, "INSERT INTO t(id, name) VALUES(1, 'site')"))

	var name string
	cause := QueryRow(ctx, db, "SELECT name FROM t WHERE id = ?", []any{1}, &name)
	assert.Nil(t, cause)
	assert.Equal(t, "site", name)
}

func TestQueryRowNoRowsIsNotFound(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Exec(ctx, db, "CREATE TABLE t(id INTEGER PRIMARY KEY)"))

	var id int
	cause := QueryRow(ctx, db, "SELECT id FROM t WHERE id = ?", []any{1}, &id)
	assert.NotNil(t, cause)
}

func TestTxRollsBackOnError(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Exec(ctx, db, "CREATE TABLE t(id INTEGER PRIMARY KEY)"))

	cause := Tx(ctx, db, nil, func(tx *sql.Tx) *errs.Error {
		if _, err := tx.Exec("INSERT INTO t(id) VALUES(1)"); err != nil {
			return errs.FromDatabase(err.Error(), nil)
		}
		return errs.FromText(errs.KindUser, "forced rollback", nil)
	})
	assert.NotNil(t, cause)

	var count int
	assert.Nil(t, QueryRow(ctx, db, "SELECT COUNT(*) FROM t", nil, &count))
	assert.Equal(t, 0, count)
}

func TestTxCommitsOnSuccess(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	assert.Nil(t, Exec(ctx, db, "CREATE TABLE t(id INTEGER PRIMARY KEY)"))

	cause := Tx(ctx, db, nil, func(tx *sql.Tx) *errs.Error {
		if _, err := tx.Exec("INSERT INTO t(id) VALUES(1)"); err != nil {
			return errs.FromDatabase(err.Error(), nil)
		}
		return nil
	})
	assert.Nil(t, cause)

	var count int
	assert.Nil(t, QueryRow(ctx, db, "SELECT COUNT(*) FROM t", nil, &count))
	assert.Equal(t, 1, count)
}

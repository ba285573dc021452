// Package migrate applies ordered schema migrations inside an exclusive
// transaction. It is monotonic and forward-only: a database newer than the
// running binary is refused rather than silently misinterpreted.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"unsafe"

	"github.com/lynlevenick/zsql/internal/errs"
)

// Migration is one version step. Statements run in order inside the same
// transaction as every other statement composing that step.
type Migration struct {
	Statements []string
}

// schemaVersion returns the count of migrations applied, matching
// len(migrations) once fully migrated.
func schemaVersion() int { return len(migrations) }

// migrations is the ordered migration set. The first migration creates
// the dirs table (unique dir, visits), its visits index, and the meta
// table; the second adds visited_at; the third rebuilds dirs with a
// surrogate id primary key; the fourth creates the two decay triggers,
// one after INSERT and one after UPDATE.
var migrations = []Migration{
	{Statements: []string{
		`CREATE TABLE dirs(
			dir BLOB NOT NULL UNIQUE,
			visits INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX index_dirs_by_visits ON dirs(visits, dir)`,
		`CREATE TABLE meta(key TEXT NOT NULL UNIQUE, value NUMERIC NOT NULL)`,
	}},
	{Statements: []string{
		`ALTER TABLE dirs ADD COLUMN visited_at INTEGER NOT NULL DEFAULT 0`,
	}},
	{Statements: []string{
		`ALTER TABLE dirs RENAME TO dirs_old`,
		`CREATE TABLE dirs(
			id INTEGER PRIMARY KEY,
			dir BLOB NOT NULL UNIQUE,
			visits INTEGER NOT NULL DEFAULT 1,
			visited_at INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT INTO dirs(dir, visits, visited_at) SELECT dir, visits, visited_at FROM dirs_old`,
		`DROP TABLE dirs_old`,
		`DROP INDEX IF EXISTS index_dirs_by_visits`,
		`CREATE INDEX index_dirs_by_visits ON dirs(visits, dir)`,
	}},
	{Statements: []string{
		`CREATE TRIGGER trigger_decay_on_mutation
			AFTER INSERT ON dirs
			WHEN (SELECT SUM(visits) FROM dirs) >= 5000
			BEGIN
				UPDATE dirs SET visits = CAST(visits * 0.9 AS INTEGER);
				DELETE FROM dirs WHERE visits = 0;
			END`,
		`CREATE TRIGGER trigger_decay_on_update
			AFTER UPDATE ON dirs
			WHEN (SELECT SUM(visits) FROM dirs) >= 5000
			BEGIN
				UPDATE dirs SET visits = CAST(visits * 0.9 AS INTEGER);
				DELETE FROM dirs WHERE visits = 0;
			END`,
	}},
}

// Apply brings db's schema up to the version this binary knows about.
// v_db > v_app fails; v_db == v_app is a no-op; v_db < v_app runs inside an
// exclusive transaction that re-reads the version to guard against a
// racing migrator, applies the missing steps in order, and records the
// little-endian metadata marker on first run.
func Apply(ctx context.Context, db *sql.DB) *errs.Error {
	current, cause := currentVersion(ctx, db)
	if cause != nil {
		return cause
	}

	target := schemaVersion()
	if current > target {
		return errs.FromText(errs.KindSchema, "database schema newer than application", nil)
	}

	if current < target {
		if cause := migrateLocked(ctx, db, target); cause != nil {
			return cause
		}
	}

	return applyEndiannessMarker(ctx, db)
}

// migrateLocked opens a single connection and drives BEGIN EXCLUSIVE by
// hand, since database/sql's own Tx abstraction always opens a deferred
// transaction and cannot be asked to upgrade it to EXCLUSIVE afterward.
func migrateLocked(ctx context.Context, db *sql.DB, target int) *errs.Error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}

	// Re-read the version now that we hold the exclusive lock: another
	// process may have completed the migration between our first read and
	// the start of this transaction.
	var current int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		rollback(ctx, conn)
		return errs.FromDatabase(err.Error(), nil)
	}

	for current < target {
		for _, stmt := range migrations[current].Statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				rollback(ctx, conn)
				return errs.FromDatabase(err.Error(), nil)
			}
		}
		current++
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", current)); err != nil {
		rollback(ctx, conn)
		return errs.FromDatabase(err.Error(), nil)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback(ctx, conn)
		return errs.FromDatabase(err.Error(), nil)
	}
	return nil
}

// rollback attempts to undo the current transaction. A failure here is
// noted but not recovered — spec.md §7 documents this as an accepted,
// unrecovered failure mode inherited from the original implementation.
func rollback(ctx context.Context, conn *sql.Conn) {
	if _, err := conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		log.Printf("rollback failed: %v", err)
	}
}

func currentVersion(ctx context.Context, db *sql.DB) (int, *errs.Error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, errs.FromDatabase(err.Error(), nil)
	}
	return version, nil
}

// littleEndian reports whether this process is little-endian, the same check
// the original performs by inspecting the low byte of a multi-byte integer.
func littleEndian() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}

func applyEndiannessMarker(ctx context.Context, db *sql.DB) *errs.Error {
	var existing sql.NullInt64
	err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key='little_endian'").Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return errs.FromDatabase(err.Error(), nil)
	}

	want := 0
	if littleEndian() {
		want = 1
	}

	// A marker that is already present is left as written, even when it
	// differs from this process's byte order.
	if existing.Valid {
		return nil
	}

	// The conversion routine itself (rewriting any stored multi-byte
	// integers for the new endianness) is a documented TODO inherited from
	// the original implementation: this repo preserves the marker without
	// performing the conversion. See spec.md §9.
	_, err = db.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('little_endian', ?1)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, want)
	if err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}
	return nil
}

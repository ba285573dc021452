// Package sqlh is a thin wrapper around database/sql that prepares, runs,
// and finalizes statements while reporting failures through the Error
// Chain, the Go equivalent of the original zsql prepare/step/finalize
// helper.
package sqlh

import (
	"context"
	"database/sql"
	"log"

	"github.com/lynlevenick/zsql/internal/errs"
)

// Exec prepares sql, executes it once with args, and closes the statement,
// chaining any failure from either step through the Error Chain.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) *errs.Error {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}
	return nil
}

// QueryRow prepares sql, steps it once, and scans the single resulting row
// into dest, closing the statement regardless of outcome. A result of
// sql.ErrNoRows is reported as errs.KindNotFound rather than KindDatabase,
// since an empty result set is an expected outcome, not an engine failure.
func QueryRow(ctx context.Context, db *sql.DB, query string, args []any, dest ...any) *errs.Error {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}
	defer stmt.Close()

	if err := stmt.QueryRowContext(ctx, args...).Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return errs.FromText(errs.KindNotFound, "no result", nil)
		}
		return errs.FromDatabase(err.Error(), nil)
	}
	return nil
}

// Tx runs fn inside a transaction opened with the given options, committing
// on success and rolling back on any error returned by fn or by Commit
// itself. A failure during rollback is logged rather than recovered —
// spec.md §7 notes this as a known, unrecovered "fixme" in the original.
// sql.ErrTxDone (the transaction already ended) is not logged.
func Tx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(*sql.Tx) *errs.Error) *errs.Error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return errs.FromDatabase(err.Error(), nil)
	}

	if cause := fn(tx); cause != nil {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("rollback failed: %v", err)
		}
		return cause
	}

	if err := tx.Commit(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			log.Printf("rollback failed: %v", rbErr)
		}
		return errs.FromDatabase(err.Error(), nil)
	}
	return nil
}

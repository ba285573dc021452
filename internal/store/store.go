// Package store owns the SQLite connection, registers the Scorer as a
// UDF callable from SQL, and implements add/search/forget over the dirs
// table — the composite rank formula runs entirely inside the database.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/lynlevenick/zsql/internal/errs"
	"github.com/lynlevenick/zsql/internal/migrate"
	"github.com/lynlevenick/zsql/internal/query"
	"github.com/lynlevenick/zsql/internal/scorer"
	"github.com/lynlevenick/zsql/internal/sqlh"
)

// driverName is a private registration distinct from "sqlite3" so that
// every connection opened through it carries the zsql_match UDF without
// disturbing any other package in this process that wants a plain
// mattn/go-sqlite3 connection (internal/migrate and internal/sqlh's own
// tests, for instance).
const driverName = "sqlite3_zsql"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("zsql_match", matchUDF, true)
		},
	})
}

// matchUDF is the SQL-callable face of the Scorer. mattn/go-sqlite3's
// RegisterFunc only binds SQL-typed scalars, not the opaque pointer the
// original calling convention uses, so the query side is flattened into
// two parameters: the query's codepoints as a little-endian int32 BLOB,
// and the one normalization option (case-folding) that legitimately
// varies per invocation. dir arrives as the raw OS bytes the row was
// inserted with and is normalized here, at match time, with the same
// fold flag the query used — see SPEC_FULL.md §1.6.
func matchUDF(dir []byte, needleBlob []byte, fold bool) interface{} {
	haystack := query.NormalizeBytes(dir, query.Options{Fold: fold})
	needle := decodeCodepoints(needleBlob)

	score := scorer.Score(haystack, needle)
	if score == scorer.NoMatch {
		return nil
	}
	return score
}

func encodeCodepoints(runes []rune) []byte {
	buf := make([]byte, 4*len(runes))
	for i, r := range runes {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(r))
	}
	return buf
}

func decodeCodepoints(b []byte) []rune {
	runes := make([]rune, len(b)/4)
	for i := range runes {
		runes[i] = rune(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return runes
}

// Candidate is one ranked row, exported for internal/debugfmt's
// --debug dump of the top N rows.
type Candidate struct {
	ID        int64
	Dir       []byte
	Score     float64
	Visits    int64
	VisitedAt int64
}

// Store is a single open connection to a zsql database file.
type Store struct {
	db *sql.DB
}

// openRetryAttempts and openRetryDelay bound the initial-open retry on
// SQLITE_BUSY per SPEC_FULL.md §1.8; busyTimeoutMillis covers lock
// contention encountered afterward, mirroring the original's
// sqlite3_busy_timeout(db, 128) called right after sqlite3_open.
const (
	openRetryAttempts = 8
	openRetryDelay    = 16 * time.Millisecond
	busyTimeoutMillis = 128
)

// Open opens (creating if absent) the database at path and brings its
// schema up to date. SetMaxOpenConns(1) matters beyond ":memory:"
// semantics here too: BEGIN EXCLUSIVE inside the migrator assumes it
// holds the only connection to this *sql.DB.
func Open(ctx context.Context, path string) (*Store, *errs.Error) {
	db, err := sql.Open(driverName, withBusyTimeout(path))
	if err != nil {
		return nil, errs.FromDatabase(err.Error(), nil)
	}
	db.SetMaxOpenConns(1)

	if cause := openWithRetry(ctx, db); cause != nil {
		db.Close()
		return nil, cause
	}

	if cause := migrate.Apply(ctx, db); cause != nil {
		db.Close()
		return nil, cause
	}
	return &Store{db: db}, nil
}

func withBusyTimeout(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=" + strconv.Itoa(busyTimeoutMillis)
}

// openWithRetry forces database/sql's lazily-established connection
// open now, so a concurrent writer's exclusive lock at the moment of
// open surfaces here as SQLITE_BUSY rather than inside the migrator.
// Background `PROG -a "$(pwd)" &` invocations per SPEC_FULL.md §1.8
// make this a routine condition, not an exceptional one.
func openWithRetry(ctx context.Context, db *sql.DB) *errs.Error {
	var lastErr error
	for attempt := 0; attempt < openRetryAttempts; attempt++ {
		lastErr = db.PingContext(ctx)
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) {
			return errs.FromDatabase(lastErr.Error(), nil)
		}
		time.Sleep(openRetryDelay)
	}
	return errs.FromDatabase(lastErr.Error(), nil)
}

func isBusy(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	return ok && sqliteErr.Code == sqlite3.ErrBusy
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add records a visit to dir: insert on first visit, or increment
// visits and refresh visited_at on a repeat visit to the same
// byte-for-byte path.
func (s *Store) Add(ctx context.Context, dir []byte) *errs.Error {
	if len(dir) == 0 {
		return errs.FromText(errs.KindUser, "empty directory", nil)
	}
	return sqlh.Exec(ctx, s.db, `
		INSERT INTO dirs(dir, visits, visited_at) VALUES(?1, 1, ?2)
		ON CONFLICT(dir) DO UPDATE SET
			visits = visits + 1,
			visited_at = excluded.visited_at
	`, dir, time.Now().Unix())
}

// rankingQuery implements the composite rank formula verbatim: the
// scorer's own output, a frequency weight that asymptotically
// approaches zero as visits grows, and a recency boost keyed off rank
// position (not absolute time) among the rows the scorer actually
// matched. Rows the scorer rejects (NULL, i.e. -Inf) never enter the
// window function at all.
const rankingQuery = `
WITH scored AS (
	SELECT id, dir, visits, visited_at,
	       zsql_match(dir, ?1, ?2) AS score
	FROM dirs
),
ranked AS (
	SELECT id, dir, visits, visited_at, score,
	       DENSE_RANK() OVER (ORDER BY visited_at DESC) AS recency_rank
	FROM scored
	WHERE score IS NOT NULL
)
SELECT id, dir, score, visits, visited_at
FROM ranked
ORDER BY (
	score
	- 250000.0 / (visits + 300)
	+ 250000.0 / 301
	+ 500.0 / recency_rank
) DESC
LIMIT ?3
`

func (s *Store) rank(ctx context.Context, needle []rune, opts query.Options, limit int) ([]Candidate, *errs.Error) {
	rows, err := s.db.QueryContext(ctx, rankingQuery, encodeCodepoints(needle), opts.Fold, limit)
	if err != nil {
		return nil, errs.FromDatabase(err.Error(), nil)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Dir, &c.Score, &c.Visits, &c.VisitedAt); err != nil {
			return nil, errs.FromDatabase(err.Error(), nil)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.FromDatabase(err.Error(), nil)
	}
	return out, nil
}

// Search steps the ranking statement once and returns its top path.
func (s *Store) Search(ctx context.Context, needle []rune, opts query.Options) (dir []byte, found bool, cause *errs.Error) {
	rows, cause := s.rank(ctx, needle, opts, 1)
	if cause != nil {
		return nil, false, cause
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Dir, true, nil
}

// Candidates returns up to limit ranked rows, for internal/debugfmt's
// --debug dump. Production search only ever needs the top row; this
// exists solely to give the CLI's debug path something real to show.
func (s *Store) Candidates(ctx context.Context, needle []rune, opts query.Options, limit int) ([]Candidate, *errs.Error) {
	return s.rank(ctx, needle, opts, limit)
}

// Best identifies the forget candidate: the same ranking search used by
// Search, returning the full row so the caller can prompt with its path
// and later delete it by id.
func (s *Store) Best(ctx context.Context, needle []rune, opts query.Options) (Candidate, bool, *errs.Error) {
	rows, cause := s.rank(ctx, needle, opts, 1)
	if cause != nil {
		return Candidate{}, false, cause
	}
	if len(rows) == 0 {
		return Candidate{}, false, nil
	}
	return rows[0], true, nil
}

// Delete removes the row with the given id. The caller (cmd/zsql) is
// responsible for confirming with the user first — Store never prompts.
func (s *Store) Delete(ctx context.Context, id int64) *errs.Error {
	return sqlh.Exec(ctx, s.db, "DELETE FROM dirs WHERE id = ?1", id)
}

// Tune rewrites both decay triggers to use an operator-configured
// threshold and factor instead of the migrator's baked-in 5000/0.9.
// Triggers can be dropped and recreated freely without a schema
// migration, so a config.Config loaded at process start can retune
// decay behavior on an existing database without bumping the schema
// version.
func (s *Store) Tune(ctx context.Context, threshold int64, factor float64) *errs.Error {
	for _, name := range []string{"trigger_decay_on_mutation", "trigger_decay_on_update"} {
		event := "INSERT"
		if name == "trigger_decay_on_update" {
			event = "UPDATE"
		}

		if cause := sqlh.Exec(ctx, s.db, "DROP TRIGGER IF EXISTS "+name); cause != nil {
			return cause
		}

		stmt := fmt.Sprintf(`
			CREATE TRIGGER %s
				AFTER %s ON dirs
				WHEN (SELECT SUM(visits) FROM dirs) >= %d
				BEGIN
					UPDATE dirs SET visits = CAST(visits * %f AS INTEGER);
					DELETE FROM dirs WHERE visits = 0;
				END`, name, event, threshold, factor)
		if cause := sqlh.Exec(ctx, s.db, stmt); cause != nil {
			return cause
		}
	}
	return nil
}


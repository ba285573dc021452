// Package zsql implements the smart-cd directory jumper: one process
// performing exactly one of {search, add, forget, emit shell script}
// per invocation, backed by a single SQLite database file.
package zsql

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lynlevenick/zsql/internal/config"
	"github.com/lynlevenick/zsql/internal/debugfmt"
	"github.com/lynlevenick/zsql/internal/errs"
	"github.com/lynlevenick/zsql/internal/query"
	"github.com/lynlevenick/zsql/internal/script"
	"github.com/lynlevenick/zsql/internal/store"
	"github.com/lynlevenick/zsql/internal/xdgpath"
)

// Mode selects which of the four CLI behaviors this invocation runs.
type Mode int

const (
	ModeSearch Mode = iota
	ModeAdd
	ModeForget
	ModeScript
)

// Options captures one invocation's CLI-derived inputs. Confirm is the
// external collaborator spec.md leaves outside the HARD CORE: it reads
// the forget prompt's answer and is only ever called in ModeForget.
type Options struct {
	Mode     Mode
	CaseMode query.CaseMode
	Args     []string
	Debug    bool
	Prog     string
	Confirm  func() bool
}

// Run dispatches to the requested mode, writing any search/forget
// output to w. It returns nil on success; any non-nil error should be
// printed via errs.Print and translated to a nonzero exit code by the
// caller.
func Run(ctx context.Context, w io.Writer, opts Options) *errs.Error {
	if opts.Mode == ModeScript {
		fmt.Fprint(w, script.Render(opts.Prog))
		return nil
	}

	raw := query.Join(opts.Args)
	if opts.Mode != ModeAdd && strings.TrimSpace(raw) == "" {
		return errs.FromText(errs.KindUser, "no search specified", nil)
	}

	dbPath, cause := xdgpath.DBPath()
	if cause != nil {
		return cause
	}
	s, cause := store.Open(ctx, dbPath)
	if cause != nil {
		return cause
	}
	defer s.Close()

	cfg, cause := config.Load()
	if cause != nil {
		return cause
	}
	defaults := config.Defaults()
	if cfg.DecayThreshold != defaults.DecayThreshold || cfg.DecayFactor != defaults.DecayFactor {
		if cause := s.Tune(ctx, cfg.DecayThreshold, cfg.DecayFactor); cause != nil {
			return cause
		}
	}

	switch opts.Mode {
	case ModeAdd:
		return runAdd(ctx, s, cfg, opts.Args)
	case ModeForget:
		return runForget(ctx, w, s, opts.CaseMode, raw, opts.Confirm)
	default:
		if opts.Debug {
			return runDebug(ctx, w, s, opts.CaseMode, raw)
		}
		return runSearch(ctx, w, s, opts.CaseMode, raw)
	}
}

// debugCandidateLimit bounds the --debug dump per SPEC_FULL.md §3.5:
// it steps up to ten rows of the same ranking statement Search uses,
// rather than stopping at the first.
const debugCandidateLimit = 10

func runDebug(ctx context.Context, w io.Writer, s *store.Store, mode query.CaseMode, raw string) *errs.Error {
	copts := query.ResolveCase(mode, raw)
	needle := query.NormalizeBytes([]byte(raw), copts)

	candidates, cause := s.Candidates(ctx, needle, copts, debugCandidateLimit)
	if cause != nil {
		return cause
	}

	rows := make([]debugfmt.Row, len(candidates))
	for i, c := range candidates {
		rows[i] = debugfmt.Row{
			ID: c.ID, Dir: string(c.Dir), Score: c.Score,
			Visits: c.Visits, VisitedAt: c.VisitedAt,
		}
	}
	debugfmt.Dump(w, rows)
	return nil
}

func runAdd(ctx context.Context, s *store.Store, cfg config.Config, args []string) *errs.Error {
	if len(args) != 1 {
		return errs.FromText(errs.KindUser, "add mode takes exactly one directory argument", nil)
	}
	dir := args[0]
	if cfg.Excluded(dir) {
		return nil
	}
	return s.Add(ctx, []byte(dir))
}

func runSearch(ctx context.Context, w io.Writer, s *store.Store, mode query.CaseMode, raw string) *errs.Error {
	opts := query.ResolveCase(mode, raw)
	needle := query.NormalizeBytes([]byte(raw), opts)

	dir, found, cause := s.Search(ctx, needle, opts)
	if cause != nil {
		return cause
	}
	if !found {
		return errs.FromText(errs.KindNotFound, "no result", nil)
	}

	// The trailing '$' sentinel lets the shell wrapper strip it with
	// ${var%?} without needing to know whether a trailing newline was
	// also captured by command substitution.
	fmt.Fprintf(w, "%s$", dir)
	return nil
}

func runForget(ctx context.Context, w io.Writer, s *store.Store, mode query.CaseMode, raw string, confirm func() bool) *errs.Error {
	copts := query.ResolveCase(mode, raw)
	needle := query.NormalizeBytes([]byte(raw), copts)

	cand, found, cause := s.Best(ctx, needle, copts)
	if cause != nil {
		return cause
	}
	if !found {
		return errs.FromText(errs.KindNotFound, "no result", nil)
	}

	fmt.Fprintf(w, "Remove `%s'? [Yn] ", cand.Dir)
	if confirm == nil || !confirm() {
		return nil
	}
	return s.Delete(ctx, cand.ID)
}

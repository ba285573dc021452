// Package query turns user-supplied command-line arguments into the
// normalized codepoint sequence and options the store's ranking statement
// needs.
package query

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/lynlevenick/zsql/internal/codec"
)

// CaseMode selects how -c/-i/smart-case resolve.
type CaseMode int

const (
	// CaseSmart folds unless the joined query contains an upper-case
	// codepoint.
	CaseSmart CaseMode = iota
	// CaseSensitive never folds.
	CaseSensitive
	// CaseIgnore always folds.
	CaseIgnore
)

// Options captures the normalization behavior applied to both the query and
// (at match time) every candidate directory, so the two sides are always
// treated identically regardless of which flags this invocation used.
type Options struct {
	// Fold is true when matching should be case-insensitive.
	Fold bool
}

// Join combines positional CLI arguments into a single search string. They
// are joined with a single space, not concatenated — see SPEC_FULL.md §1.7
// for why concatenation was rejected.
func Join(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// ResolveCase decides whether matching should fold, given the requested
// mode and the raw (pre-normalization) query text. Smart-case scans for any
// upper-case codepoint; if the mode explicitly forces a side, that wins
// without scanning.
func ResolveCase(mode CaseMode, raw string) Options {
	switch mode {
	case CaseSensitive:
		return Options{Fold: false}
	case CaseIgnore:
		return Options{Fold: true}
	default:
		for _, r := range raw {
			if unicode.IsUpper(r) {
				return Options{Fold: false}
			}
		}
		return Options{Fold: true}
	}
}

// Normalize applies the decomposition pipeline spec.md §4.6 describes:
// compatibility decomposition, stripping ignorable/unassigned codepoints,
// lumping similar forms (fullwidth/halfwidth), recomposition, and
// case-folding when requested. The candidate side of every match runs
// through the exact same pipeline at query time in the store's UDF, so the
// two sides are only ever compared after identical treatment.
func Normalize(s string, opts Options) []rune {
	s = norm.NFKD.String(s)
	s = stripIgnorableAndUnassigned(s)
	s = width.Fold.String(s)
	s = norm.NFKC.String(s)
	if opts.Fold {
		s = cases.Fold().String(s)
	}
	return []rune(s)
}

// NormalizeBytes runs raw OS bytes (a directory path or a query argument,
// both treated identically) through codec.Encode and then the same
// normalization pipeline as Normalize. Bytes that codec.Encode could not
// decode as valid UTF-8 surface as tagged codepoints; those are left
// untouched and act as hard boundaries around the runs of valid text on
// either side, since decomposition, width-folding, and recomposition are
// only meaningful within a run of real codepoints.
func NormalizeBytes(b []byte, opts Options) []rune {
	runes := codec.Encode(b)

	out := make([]rune, 0, len(runes))
	i := 0
	for i < len(runes) {
		if codec.IsTagged(runes[i]) {
			out = append(out, runes[i])
			i++
			continue
		}

		j := i
		for j < len(runes) && !codec.IsTagged(runes[j]) {
			j++
		}
		out = append(out, Normalize(string(runes[i:j]), opts)...)
		i = j
	}
	return out
}

func stripIgnorableAndUnassigned(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) {
			continue // default-ignorable format character (e.g. ZWJ, soft hyphen)
		}
		if !isAssigned(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// isAssigned reports whether r falls in any category Go's unicode tables
// carry. Go only ships range tables for assigned codepoints, so a
// codepoint matching none of the major categories is, by construction,
// unassigned (category Cn).
func isAssigned(r rune) bool {
	return unicode.In(r,
		unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z, unicode.C,
	)
}

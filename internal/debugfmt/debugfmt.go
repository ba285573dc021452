// Package debugfmt renders the --debug dump of ranked search
// candidates: instead of stepping the ranking statement once, the CLI
// steps up to ten rows and pretty-prints each one here.
package debugfmt

import (
	"io"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Row is the shape debugfmt prints; kept independent of internal/store
// so this package never needs to import the Store just to format one
// of its rows.
type Row struct {
	ID        int64
	Dir       string
	Score     float64
	Visits    int64
	VisitedAt int64
}

// Dump pretty-prints rows to w, colorizing when w is a real terminal.
func Dump(w io.Writer, rows []Row) {
	printer := pp.New()
	printer.SetColoringEnabled(isTerminal(w))
	for _, r := range rows {
		printer.Fprintln(w, r)
	}
}

// isTerminal reports whether w is an *os.File attached to a terminal
// (including a Cygwin terminal). Any other writer reports false.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Stdout returns stdout wrapped by colorable when it's a terminal, or
// stdout itself otherwise. Dump colorizes only a writer that is an
// *os.File; on Windows colorable's wrapper is not one, so Dump prints to
// it without color.
func Stdout() io.Writer {
	if isTerminal(os.Stdout) {
		return colorable.NewColorable(os.Stdout)
	}
	return os.Stdout
}

package main

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/lynlevenick/zsql"
	"github.com/lynlevenick/zsql/internal/debugfmt"
	"github.com/lynlevenick/zsql/internal/errs"
	"github.com/lynlevenick/zsql/internal/query"
)

// argv0 is captured once at process entry, per spec.md §9's note that
// it is process-wide state rather than something threaded through
// every call.
var argv0 = filepath.Base(os.Args[0])

type cliOptions struct {
	Add    bool `short:"a" description:"Add a directory to the database"`
	Case   bool `short:"c" description:"Force case-sensitive matching"`
	Ignore bool `short:"i" description:"Force case-insensitive matching"`
	Forget bool `short:"f" description:"Remove the best match after confirmation"`
	Script bool `short:"S" description:"Print the shell integration script and exit"`
	Debug  bool `long:"debug" description:"Print up to ten ranked candidates instead of jumping"`

	Positional struct {
		Query []string `positional-arg-name:"query"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[-a dir | -f | -S] [-c|-i] [query...]"
	// Case and Ignore only need to exist so go-flags recognizes -c/-i as
	// valid flags; their last-wins precedence is resolved below by
	// rescanning the raw args, which a pair of independent booleans
	// can't express.
	if _, err := parser.ParseArgs(args); err != nil {
		return 1
	}

	mode := zsql.ModeSearch
	switch {
	case opts.Script:
		mode = zsql.ModeScript
	case opts.Add:
		mode = zsql.ModeAdd
	case opts.Forget:
		mode = zsql.ModeForget
	}

	cause := zsql.Run(context.Background(), debugfmt.Stdout(), zsql.Options{
		Mode:     mode,
		CaseMode: caseMode(args),
		Args:     opts.Positional.Query,
		Debug:    opts.Debug,
		Prog:     argv0,
		Confirm:  confirmFromStdin,
	})
	if cause != nil {
		errs.Print(os.Stderr, argv0, cause)
		return 1
	}
	return 0
}

// caseMode resolves -c/-i last-wins by scanning the raw argument list in
// order, since a struct of two independent booleans can't tell which
// flag was given later on the command line.
func caseMode(args []string) query.CaseMode {
	mode := query.CaseSmart
	for _, a := range args {
		switch a {
		case "-c":
			mode = query.CaseSensitive
		case "-i":
			mode = query.CaseIgnore
		}
	}
	return mode
}

// confirmFromStdin reads a single byte in answer to the forget prompt.
// Anything other than 'n'/'N' confirms deletion — except EOF, which
// this repo treats as abort rather than confirmation (see
// SPEC_FULL.md §1.7 for why this overrides the original behavior).
//
// A stdin that isn't an interactive terminal gets the same treatment as
// EOF: there's no one on the other end to answer the prompt, so forget
// aborts rather than blocking on a pipe that will never produce 'y'.
func confirmFromStdin() bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	b, err := bufio.NewReader(os.Stdin).ReadByte()
	if err != nil {
		return false
	}
	return b != 'n' && b != 'N'
}


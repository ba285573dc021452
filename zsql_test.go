package zsql

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lynlevenick/zsql/internal/errs"
	"github.com/lynlevenick/zsql/internal/query"
)

func isolatedDataDir(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestRunScriptModeNeverTouchesTheDatabase(t *testing.T) {
	isolatedDataDir(t)
	var buf bytes.Buffer
	cause := Run(context.Background(), &buf, Options{Mode: ModeScript, Prog: "zsql"})
	assert.Nil(t, cause)
	assert.Contains(t, buf.String(), "z() {")
}

func TestRunAddThenSearchFindsPath(t *testing.T) {
	isolatedDataDir(t)
	ctx := context.Background()

	cause := Run(ctx, &bytes.Buffer{}, Options{Mode: ModeAdd, Args: []string{"/home/u/projects/site"}})
	assert.Nil(t, cause)

	var out bytes.Buffer
	cause = Run(ctx, &out, Options{Mode: ModeSearch, CaseMode: query.CaseSmart, Args: []string{"site"}})
	assert.Nil(t, cause)
	assert.Equal(t, "/home/u/projects/site$", out.String())
}

func TestRunSearchWithEmptyQueryIsUserError(t *testing.T) {
	isolatedDataDir(t)
	cause := Run(context.Background(), &bytes.Buffer{}, Options{Mode: ModeSearch, Args: []string{" "}})
	assert.NotNil(t, cause)
	assert.Contains(t, cause.Message, "no search specified")
}

func TestRunAddRequiresExactlyOneArgument(t *testing.T) {
	isolatedDataDir(t)
	cause := Run(context.Background(), &bytes.Buffer{}, Options{Mode: ModeAdd, Args: []string{"a", "b"}})
	assert.NotNil(t, cause)
}

func TestRunForgetPromptsAndRespectsDeclinedConfirm(t *testing.T) {
	isolatedDataDir(t)
	ctx := context.Background()
	assert.Nil(t, Run(ctx, &bytes.Buffer{}, Options{Mode: ModeAdd, Args: []string{"/home/u/projects/site"}}))

	var out bytes.Buffer
	cause := Run(ctx, &out, Options{
		Mode: ModeForget, CaseMode: query.CaseSmart, Args: []string{"site"},
		Confirm: func() bool { return false },
	})
	assert.Nil(t, cause)
	assert.Contains(t, out.String(), "Remove `/home/u/projects/site'? [Yn] ")

	var searchOut bytes.Buffer
	cause = Run(ctx, &searchOut, Options{Mode: ModeSearch, CaseMode: query.CaseSmart, Args: []string{"site"}})
	assert.Nil(t, cause)
	assert.Equal(t, "/home/u/projects/site$", searchOut.String())
}

func TestRunForgetDeletesOnConfirm(t *testing.T) {
	isolatedDataDir(t)
	ctx := context.Background()
	assert.Nil(t, Run(ctx, &bytes.Buffer{}, Options{Mode: ModeAdd, Args: []string{"/home/u/projects/site"}}))

	cause := Run(ctx, &bytes.Buffer{}, Options{
		Mode: ModeForget, CaseMode: query.CaseSmart, Args: []string{"site"},
		Confirm: func() bool { return true },
	})
	assert.Nil(t, cause)

	cause = Run(ctx, &bytes.Buffer{}, Options{Mode: ModeSearch, CaseMode: query.CaseSmart, Args: []string{"site"}})
	assert.NotNil(t, cause)
	assert.Equal(t, errs.KindNotFound, cause.Kind)
}

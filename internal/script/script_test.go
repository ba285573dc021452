package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmbedsProgName(t *testing.T) {
	out := Render("zsql")
	assert.Contains(t, out, `zsql -a "$(pwd)"`)
	assert.Contains(t, out, "z() {")
}

func TestRenderStripsSentinelOnSearch(t *testing.T) {
	out := Render("zsql")
	assert.Contains(t, out, `${__zsql_dest%?}`)
}

func TestRenderPassesNonSearchFlagsThrough(t *testing.T) {
	out := Render("zsql")
	assert.True(t, strings.Contains(out, "-a|-f|-S)"))
}

package uisink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalReportsProgress(t *testing.T) {
	var buf strings.Builder
	term := &Terminal{Out: &buf}

	term.Prep(2, "scanning")
	term.Step()
	term.Step()
	term.Fin()

	out := buf.String()
	assert.Contains(t, out, "scanning: 1/2")
	assert.Contains(t, out, "scanning: 2/2")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalZeroTotalEmitsNothing(t *testing.T) {
	var buf strings.Builder
	term := &Terminal{Out: &buf}

	term.Prep(0, "scanning")
	term.Step()
	term.Fin()

	assert.Empty(t, buf.String())
}

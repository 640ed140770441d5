package lsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedHeader(t *testing.T) {
	body := "#!/bin/sh\n" +
		"### BEGIN INIT INFO\n" +
		"# Provides:          myapp\n" +
		"# Required-Start:    $network\n" +
		"# Default-Start:     2 3 4 5\n" +
		"# Default-Stop:      0 1 6\n" +
		"### END INIT INFO\n" +
		"echo hi\n"

	hdr, found := Parse(body)
	require.True(t, found)
	assert.Equal(t, []int{2, 3, 4, 5}, hdr.DefaultStart)
	assert.True(t, hdr.AllowsRunlevel(3))
	assert.False(t, hdr.AllowsRunlevel(1))
}

func TestParseNoHeaderBlock(t *testing.T) {
	hdr, found := Parse("#!/bin/sh\necho no header here\n")
	assert.False(t, found)
	assert.Empty(t, hdr.DefaultStart)
}

func TestParseIgnoresContentOutsideBlock(t *testing.T) {
	body := "# Default-Start: 9 9 9\n" +
		"### BEGIN INIT INFO\n" +
		"# Default-Start: 2 3\n" +
		"### END INIT INFO\n" +
		"# Default-Start: 4 5\n"

	hdr, found := Parse(body)
	require.True(t, found)
	assert.Equal(t, []int{2, 3}, hdr.DefaultStart, "lines outside the marked block must not leak in")
}

func TestParseTagCaseInsensitive(t *testing.T) {
	hdr, found := Parse("### BEGIN INIT INFO\n# default-start: 2\n### END INIT INFO\n")
	require.True(t, found)
	assert.True(t, hdr.AllowsRunlevel(2))
}

func TestParseSkipsNonNumericRunlevels(t *testing.T) {
	hdr, _ := Parse("### BEGIN INIT INFO\n# Default-Start: 2 S boot\n### END INIT INFO\n")
	assert.Equal(t, []int{2}, hdr.DefaultStart)
}

func TestAllowsRunlevelEmptyHeader(t *testing.T) {
	var hdr Header
	assert.False(t, hdr.AllowsRunlevel(2))
}

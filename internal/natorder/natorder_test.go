package natorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLessNumericRuns(t *testing.T) {
	cases := []struct {
		a, b string
		less bool
	}{
		{"img2", "img10", true},
		{"img10", "img2", false},
		{"5.10.0-1-amd64", "5.10.0-2-amd64", true},
		{"5.10.0-2-amd64", "5.10.0-1-amd64", false},
		{"a", "b", true},
		{"10hook", "10hook", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.less, Less(c.a, c.b), "Less(%q, %q)", c.a, c.b)
	}
}

func TestSortHookNames(t *testing.T) {
	names := []string{"20-foo", "1-bar", "10-baz", "2-qux"}
	Sort(names)
	assert.Equal(t, []string{"1-bar", "2-qux", "10-baz", "20-foo"}, names)
}

package proctable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipberndt/needrestart/internal/model"
)

func TestLookupAndSortedPids(t *testing.T) {
	tbl := NewFromPids([]model.PidInfo{
		{Pid: 30}, {Pid: 10}, {Pid: 20},
	})

	assert.Equal(t, []int{10, 20, 30}, tbl.SortedPids())

	info, ok := tbl.Lookup(20)
	require.True(t, ok)
	assert.Equal(t, 20, info.Pid)

	_, ok = tbl.Lookup(999)
	assert.False(t, ok)
}

func TestIsIgnored(t *testing.T) {
	tbl := NewFromPids([]model.PidInfo{{Pid: 5}}, 5, 1)
	assert.True(t, tbl.IsIgnored(5))
	assert.True(t, tbl.IsIgnored(1))
	assert.False(t, tbl.IsIgnored(42))
}

func TestFindServiceManagerAncestorStopsBelowRoot(t *testing.T) {
	tbl := NewFromPids([]model.PidInfo{
		{Pid: 1, Ppid: 0},
		{Pid: 100, Ppid: 1},
		{Pid: 200, Ppid: 100},
	})

	// The walk stops at the ancestor whose parent is pid 1.
	anc, ok := tbl.FindServiceManagerAncestor(200)
	require.True(t, ok)
	assert.Equal(t, 100, anc.Pid)
}

func TestFindServiceManagerAncestorStopsAtMissingParent(t *testing.T) {
	tbl := NewFromPids([]model.PidInfo{
		{Pid: 300, Ppid: 299}, // parent 299 not in the snapshot
	})

	anc, ok := tbl.FindServiceManagerAncestor(300)
	require.True(t, ok)
	assert.Equal(t, 300, anc.Pid)
}

func TestFindServiceManagerAncestorBreaksCycles(t *testing.T) {
	// A pid-reuse artifact: 10 -> 20 -> 10, which must not loop forever.
	tbl := NewFromPids([]model.PidInfo{
		{Pid: 10, Ppid: 20},
		{Pid: 20, Ppid: 10},
	})

	anc, ok := tbl.FindServiceManagerAncestor(10)
	require.True(t, ok)
	assert.NotZero(t, anc.Pid)
}

func TestFindServiceManagerAncestorUnknownPid(t *testing.T) {
	tbl := NewFromPids(nil)
	_, ok := tbl.FindServiceManagerAncestor(42)
	assert.False(t, ok)
}

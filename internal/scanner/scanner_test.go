package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipberndt/needrestart/internal/kernelscan"
	"github.com/phillipberndt/needrestart/internal/model"
	"github.com/phillipberndt/needrestart/internal/proctable"
)

func TestRunAttributesObsoletePidsAndSkipsIgnored(t *testing.T) {
	procDirs := t.TempDir()

	deletedPid := model.PidInfo{Pid: 50, Ppid: 1, ExePath: "/usr/bin/stale", ExeDeleted: true}
	currentPid := model.PidInfo{Pid: 60, Ppid: 1, ExePath: "/usr/bin/fine"}
	ignoredPid := model.PidInfo{Pid: 99, Ppid: 1, ExePath: "/usr/bin/self", ExeDeleted: true}

	table := proctable.NewFromPids([]model.PidInfo{deletedPid, currentPid, ignoredPid}, 99)

	opts := Options{
		BuildTable: func() (*proctable.Table, error) { return table, nil },
		ProcPathFor: func(pid int) string {
			dir := filepath.Join(procDirs, "no-maps-for-this-pid")
			return dir
		},
	}

	rpt, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, rpt.UnattributedPids, 1)
	assert.Equal(t, 50, rpt.UnattributedPids[0].Pid.Pid)
}

func TestRunReturnsNoReportWhenCanceled(t *testing.T) {
	table := proctable.NewFromPids([]model.PidInfo{{Pid: 1}, {Pid: 2}, {Pid: 3}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{BuildTable: func() (*proctable.Table, error) { return table, nil }}
	rpt, err := Run(ctx, opts)

	assert.Error(t, err)
	assert.Nil(t, rpt)
}

func TestRunAppliesKernelHints(t *testing.T) {
	procDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "version"), []byte(
		"Linux version 5.10.0-1-amd64 (builder@x) #1 SMP Debian 5.10.0-1 (2021-01-01)\n"), 0o644))

	table := proctable.NewFromPids(nil)
	opts := Options{
		BuildTable:  func() (*proctable.Table, error) { return table, nil },
		KernelHints: true,
		Kernel:      kernelscan.Scanner{ProcPath: procDir, BootDir: t.TempDir()},
	}

	rpt, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, rpt.Kernel)
	assert.Equal(t, model.KernelUnknown, rpt.Kernel.Kind) // boot dir holds no images
}

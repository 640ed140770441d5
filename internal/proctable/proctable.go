// Package proctable produces a single, frozen snapshot of every process
// visible to the caller. It is grounded on the teacher's
// pkg/util/lsof/lsof_linux.go, which opens a procfs.FS rooted at $HOST_PROC
// (or /proc) and walks it with github.com/prometheus/procfs; this package
// widens that pattern from "open files of one pid" to "every visible pid's
// identity attributes".
package proctable

import (
	"os"
	"sort"
	"strconv"
	"syscall"

	"github.com/prometheus/procfs"

	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/model"
)

// Table is a frozen snapshot: once built, it is consumed read-only by every
// downstream stage. Pids that vanish after the snapshot was taken are
// simply absent from Lookup.
type Table struct {
	byPid map[int]model.PidInfo
	// ignored holds pids that are never classified: our own pid and its
	// parent, per spec.md 4.1.
	ignored map[int]struct{}
}

// ProcPath returns the root of the procfs mount to scan, honoring the
// HOST_PROC override the teacher's lsof package also respects.
func ProcPath() string {
	if p, ok := os.LookupEnv("HOST_PROC"); ok {
		return p
	}
	return "/proc"
}

// Build takes one snapshot of every visible process. Kernel threads (no exe
// link) are excluded entirely; a pid that disappears mid-walk is dropped
// rather than treated as an error.
func Build() (*Table, error) {
	fs, err := procfs.NewFS(ProcPath())
	if err != nil {
		return nil, err
	}

	procs, err := fs.AllProcs()
	if err != nil {
		return nil, err
	}

	t := &Table{
		byPid:   make(map[int]model.PidInfo, len(procs)),
		ignored: make(map[int]struct{}, 2),
	}

	self := os.Getpid()
	t.ignored[self] = struct{}{}

	ttyIndex := buildTTYIndex()

	for _, p := range procs {
		info, ok := snapshotOne(p, ttyIndex)
		if !ok {
			continue
		}
		t.byPid[info.Pid] = info
	}

	if selfInfo, ok := t.byPid[self]; ok {
		t.ignored[selfInfo.Ppid] = struct{}{}
	}

	return t, nil
}

func snapshotOne(p procfs.Proc, ttyIndex ttyIndex) (model.PidInfo, bool) {
	stat, err := p.Stat()
	if err != nil {
		// Vanished between AllProcs() and here: drop silently.
		return model.PidInfo{}, false
	}

	exePath, exeDeleted, hasExe := readExe(p)
	if !hasExe {
		// No exe link: a kernel thread, excluded from all downstream work.
		return model.PidInfo{}, false
	}

	uid, ok := statUID(p.PID)
	if !ok {
		return model.PidInfo{}, false
	}

	return model.PidInfo{
		Pid:        p.PID,
		Ppid:       stat.PPID,
		Uid:        uid,
		Comm:       stat.Comm,
		TTYDevPath: ttyIndex.resolve(stat.TTY),
		ExePath:    exePath,
		ExeDeleted: exeDeleted,
		StartTicks: stat.Starttime,
	}, true
}

func readExe(p procfs.Proc) (path string, deleted bool, ok bool) {
	target, err := p.Executable()
	if err != nil {
		return "", false, false
	}
	if target == "" {
		return "", false, false
	}
	const suffix = " (deleted)"
	if len(target) > len(suffix) && target[len(target)-len(suffix):] == suffix {
		return target[:len(target)-len(suffix)], true, true
	}
	return target, false, true
}

func statUID(pid int) (uint32, bool) {
	fi, err := os.Stat(ProcPath() + "/" + strconv.Itoa(pid))
	if err != nil {
		return 0, false
	}
	sys, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return sys.Uid, true
}

// NewFromPids builds a Table directly from a caller-supplied process list,
// bypassing procfs entirely. Used by tests and by any caller replaying a
// synthetic fixture (spec.md 8's "round-trip" property).
func NewFromPids(pids []model.PidInfo, ignored ...int) *Table {
	t := &Table{
		byPid:   make(map[int]model.PidInfo, len(pids)),
		ignored: make(map[int]struct{}, len(ignored)),
	}
	for _, p := range pids {
		t.byPid[p.Pid] = p
	}
	for _, pid := range ignored {
		t.ignored[pid] = struct{}{}
	}
	return t
}

// Lookup returns the recorded PidInfo for pid, reporting whether it was
// present in the snapshot.
func (t *Table) Lookup(pid int) (model.PidInfo, bool) {
	info, ok := t.byPid[pid]
	return info, ok
}

// IsIgnored reports whether pid is the implementer's own pid or its parent,
// which are never classified.
func (t *Table) IsIgnored(pid int) bool {
	_, ok := t.ignored[pid]
	return ok
}

// SortedPids returns every snapshotted pid in ascending numeric order, the
// processing order mandated by spec.md 5 for deterministic output.
func (t *Table) SortedPids() []int {
	pids := make([]int, 0, len(t.byPid))
	for pid := range t.byPid {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// FindServiceManagerAncestor walks from pid towards pid 1, following Ppid
// links recorded in the snapshot, and returns the first process on that path
// whose parent is pid 1 (or pid 1 itself when pid is 1). If a parent is
// missing from the table, the walk stops at the last process it reached. A
// visited-set guard makes the walk safe against pid reuse during the scan
// (spec.md 9's "cycles ... terminate safely").
func (t *Table) FindServiceManagerAncestor(pid int) (model.PidInfo, bool) {
	visited := make(map[int]struct{})
	cur, ok := t.Lookup(pid)
	if !ok {
		return model.PidInfo{}, false
	}
	for {
		if _, seen := visited[cur.Pid]; seen {
			log.Warnf("pid cycle detected walking ancestry of %d, stopping at %d", pid, cur.Pid)
			return cur, true
		}
		visited[cur.Pid] = struct{}{}

		if cur.Ppid == 1 || cur.Pid == 1 {
			return cur, true
		}
		parent, ok := t.Lookup(cur.Ppid)
		if !ok {
			// Parent not visible (vanished, or foreign in unprivileged
			// mode): the candidate is the process itself.
			return cur, true
		}
		cur = parent
	}
}

// Package mapscan inspects one pid's file-backed memory mappings and
// compares each one against the file currently on disk.
//
// /proc/<pid>/maps is parsed with a small dedicated line scanner rather
// than through github.com/prometheus/procfs's ProcMaps(), because the
// matching invariant in spec.md 4.2/4.3 is defined over the literal
// "major:minor" text the kernel printed, and procfs re-encodes that text
// into a single numeric field on the way in. Everywhere else in this
// repository procfs is the library of choice (see internal/proctable); this
// is the one component where byte-for-byte fidelity to the kernel's text
// matters more than reusing the parsed struct.
package mapscan

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/phillipberndt/needrestart/internal/device"
	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/model"
)

// scratchPrefixes are directories whose contents are expected to disappear
// out from under a running process (temp files, shared memory segments
// unlinked on close); a missing backing file under one of these is not
// reported as MissingBacking.
var scratchPrefixes = []string{
	"/tmp/",
	"/var/tmp/",
	"/dev/shm/",
}

// skipPrefixes are backing paths that participate in no process's
// obsolescence, per spec.md 4.3: shared-memory handles, direct-rendering
// device handles, device-tree paths, and the anonymous-I/O pseudo path.
var skipPrefixes = []string{
	"/SYSV",
	"/dev/dri/",
	"/proc/device-tree/",
	"/dev/shm/",
	"[aio]",
}

// Verdict is the outcome of scanning one pid's maps.
type Verdict struct {
	Reason model.ObsolescenceReason // zero value (ReasonNone) means current
}

// Scan reads pid's memory map and returns the first obsolete mapping found,
// in file order; the remainder of the map is not read once one is found.
// An unreadable map file means the pid vanished mid-scan: the caller should
// treat that the same as any other disappeared pid, which Scan signals by
// returning ok=false.
func Scan(pid int, procPath string) (Verdict, bool) {
	path := procPath + "/maps"
	f, err := os.Open(path)
	if err != nil {
		log.Debugf("mapscan: pid %d vanished (%v)", pid, err)
		return Verdict{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if skip(m.Path) {
			continue
		}

		if reason, obsolete := checkMapping(m); obsolete {
			return Verdict{Reason: reason}, true
		}
	}
	// scanner.Err() on a live /proc file is exceedingly rare and not
	// distinguishable from "process exited mid-read"; treat the same way.
	if err := scanner.Err(); err != nil {
		log.Debugf("mapscan: pid %d maps read error (%v)", pid, err)
		return Verdict{}, false
	}

	return Verdict{}, true
}

// rawMapping is one parsed, not-yet-filtered line of /proc/<pid>/maps.
type rawMapping struct {
	Perms     string
	DevIDText string
	Inode     uint64
	Path      string
}

// parseLine splits one maps line into its fields:
// vaddr-range perms offset dev inode [path]
func parseLine(line string) (rawMapping, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return rawMapping{}, false
	}
	inode, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return rawMapping{}, false
	}

	var path string
	if len(fields) >= 6 {
		path = strings.Join(fields[5:], " ")
	}

	return rawMapping{
		Perms:     fields[1],
		DevIDText: fields[3],
		Inode:     inode,
		Path:      path,
	}, true
}

func skip(path string) bool {
	if path == "" {
		return true
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isExecutable(perms string) bool {
	return strings.Contains(perms, "x")
}

func isScratch(path string) bool {
	for _, p := range scratchPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// checkMapping applies the per-mapping verdict rules of spec.md 4.3 to one
// already-filtered raw line.
func checkMapping(m rawMapping) (model.ObsolescenceReason, bool) {
	if m.Inode == 0 || !isExecutable(m.Perms) {
		return model.ObsolescenceReason{}, false
	}

	fi, err := os.Stat(m.Path)
	if err != nil {
		if os.IsNotExist(err) && !isScratch(m.Path) {
			return model.ObsolescenceReason{Kind: model.ReasonMissingBacking, Path: m.Path}, true
		}
		// Either a scratch-path file legitimately gone, or a stat
		// failure (e.g. permission denied) that proves nothing: we do
		// not report obsolescence we cannot prove.
		return model.ObsolescenceReason{}, false
	}

	sys, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		// Can't prove obsolescence without a usable inode/dev; stay silent.
		return model.ObsolescenceReason{}, false
	}

	if m.Inode != sys.Ino || !device.Matches(m.DevIDText, sys.Dev) {
		return model.ObsolescenceReason{Kind: model.ReasonStaleMapping, Path: m.Path}, true
	}

	return model.ObsolescenceReason{}, false
}

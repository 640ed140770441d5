// Package attributor implements the ProcessAttributor: mapping an obsolete
// pid to the controllable unit an operator or automation driver would ask
// to be restarted.
package attributor

import (
	"context"
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/phillipberndt/needrestart/internal/cgroup"
	"github.com/phillipberndt/needrestart/internal/collab"
	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/lsb"
	"github.com/phillipberndt/needrestart/internal/model"
	"github.com/phillipberndt/needrestart/internal/proctable"
)

// Options configures one attribution pass.
type Options struct {
	// Privileged reflects whether the scan is running whole-host; it
	// governs whether the cgroup, service-manager probe and hook pathways
	// are attempted at all and whether the Unknown unit is recorded. The
	// parent-pivot walk does not consult it.
	Privileged bool

	ServiceManagerBinary string // e.g. /lib/systemd/systemd
	LegacyInitBinary     string // e.g. /sbin/init
	Runlevel             int

	HookRunner  collab.HookRunner
	Probe       collab.ServiceManagerProbe
	PidfileRoot string // defaults to /run
	ProcPath    string // defaults to /proc
	Verbose     bool
}

var systemdSliceScope = regexp.MustCompile(`user-(\d+)\.slice/session-(\d+)\.scope`)
var serviceSegment = regexp.MustCompile(`([A-Za-z0-9_.@:-]+)\.service$`)

// Attribute runs the first-match decision order of spec.md 4.5 for one
// obsolete pid, recording the result directly into rpt. A pid routed to a
// user session never also appears in rpt.Units, per the dominance
// invariant in spec.md 3.
func Attribute(ctx context.Context, pid model.PidInfo, reason model.ObsolescenceReason, table *proctable.Table, rpt *model.Report, opts Options) {
	if opts.ProcPath == "" {
		opts.ProcPath = "/proc"
	}
	if opts.PidfileRoot == "" {
		opts.PidfileRoot = "/run"
	}

	// 1. Session attribution.
	if pid.TTYDevPath != "" {
		rpt.AddUserSession(pid.Uid, pid.TTYDevPath, pid.Comm, pid.Pid)
		return
	}

	// 2. Parent pivot.
	candidate, ok := table.FindServiceManagerAncestor(pid.Pid)
	if !ok {
		candidate = pid
	}

	// 3/4. Service-manager or legacy-init root.
	if candidate.Pid == 1 {
		if opts.ServiceManagerBinary != "" && candidate.ExePath == opts.ServiceManagerBinary {
			rpt.AddUnit(model.ControllableUnit{Kind: model.UnitServiceManagerRoot})
			return
		}
		if opts.LegacyInitBinary != "" && candidate.ExePath == opts.LegacyInitBinary {
			rpt.AddUnit(model.ControllableUnit{Kind: model.UnitLegacyInit})
			return
		}
	}

	// 5. Cgroup probe, service-manager mode only.
	if opts.Privileged && tryCgroup(candidate, opts, rpt) {
		return
	}

	// 6. Service-manager probe fallback.
	if opts.Privileged && opts.Probe != nil {
		if unit, ok := opts.Probe.UnitForPID(ctx, candidate.Pid); ok && unit != "" {
			name := unit
			if m := serviceSegment.FindStringSubmatch(unit); m != nil {
				name = m[1]
			}
			// Suppress a previously recorded bare-name duplicate: if a
			// service unit under the bare name (without ".service") is
			// already recorded, this authoritative source replaces it.
			rpt.RemoveUnit(model.ControllableUnit{Kind: model.UnitServiceUnit, Name: name}.Key())
			rpt.AddUnit(model.ControllableUnit{Kind: model.UnitServiceUnit, Name: unit})
			return
		}
	}

	// 7. Hook runner. Skipped in unprivileged mode: its attributions land
	// in rpt.Units, which spec.md 3/8.3 require to stay empty when the
	// scan is not whole-host.
	if opts.Privileged && opts.HookRunner != nil && tryHooks(ctx, candidate, opts, rpt) {
		return
	}

	// 8. Nothing matched. Unknown is itself a unit, so it too is withheld
	// in unprivileged mode; the pid is still recorded as unattributed for
	// reporting purposes.
	if opts.Privileged {
		rpt.AddUnit(model.ControllableUnit{Kind: model.UnitUnknown})
	}
	rpt.AddUnattributedPid(pid, reason)
}

// tryCgroup implements spec.md 4.5.5: extract a "*.service" or
// "user-<uid>.slice/session-<n>.scope" segment from the cgroup lines tagged
// to the service-manager controller.
func tryCgroup(candidate model.PidInfo, opts Options, rpt *model.Report) bool {
	lines, err := cgroup.Read(opts.ProcPath + "/" + strconv.Itoa(candidate.Pid))
	if err != nil {
		log.Debugf("attributor: cgroup read failed for pid %d: %v", candidate.Pid, err)
		return false
	}

	for _, l := range lines {
		// The Open Questions note the original source's cgroup parsing
		// using assignment where a match test was intended; here we
		// implement the test, not the assignment.
		if !l.HasController("systemd") {
			continue
		}

		if m := serviceSegment.FindStringSubmatch(l.Path); m != nil {
			rpt.AddUnit(model.ControllableUnit{Kind: model.UnitServiceUnit, Name: m[1] + ".service"})
			return true
		}
		if m := systemdSliceScope.FindStringSubmatch(l.Path); m != nil {
			uid, err := strconv.ParseUint(m[1], 10, 32)
			if err != nil {
				continue
			}
			rpt.AddUserSession(uint32(uid), "session #"+m[2], candidate.Comm, candidate.Pid)
			return true
		}
	}
	return false
}

// tryHooks implements spec.md 4.5.7, invoking hooks one at a time and
// stopping at the first one that yields any attribution. candidate is the
// pivot-walked process whose exe path is handed to the hooks and whose pid
// a daemon's pidfile is expected to contain.
func tryHooks(ctx context.Context, candidate model.PidInfo, opts Options, rpt *model.Report) bool {
	attributedByHook := false

	err := opts.HookRunner.Run(ctx, opts.Verbose, candidate.ExePath, func(hookName string, lines []collab.HookLine) bool {
		var candidates []string
		perfectHit := false

		for _, line := range lines {
			if line.Kind != "RC" {
				continue
			}
			scriptPath := line.Value
			body, err := readScript(scriptPath)
			if err != nil {
				log.Debugf("attributor: hook %s produced unreadable RC %s: %v", hookName, scriptPath, err)
				candidates = append(candidates, scriptPath)
				continue
			}

			hdr, found := lsb.Parse(body)
			if !found {
				log.Warnf("init script %s has no LSB header block, treating as broken", scriptPath)
				candidates = append(candidates, scriptPath)
				continue
			}
			if !hdr.Recognized {
				log.Warnf("init script %s has no recognized LSB tags, treating as broken", scriptPath)
				candidates = append(candidates, scriptPath)
				continue
			}
			if !hdr.AllowsRunlevel(opts.Runlevel) {
				continue
			}

			pidfile := findPidfileRef(body, opts.PidfileRoot)
			if pidfile != "" && pidfileContainsPid(pidfile, candidate.Pid) {
				perfectHit = true
				candidates = []string{scriptPath}
				break
			}
			candidates = append(candidates, scriptPath)
		}

		if len(candidates) == 0 {
			return true // this hook yielded nothing; try the next one
		}

		promoted := false
		for _, c := range candidates {
			if !perfectHit && rpt.HasUnitNamed(path.Base(c)+".service") {
				continue
			}
			rpt.AddUnit(model.ControllableUnit{Kind: model.UnitInitScript, Path: c})
			promoted = true
			if perfectHit {
				break
			}
		}
		if promoted {
			attributedByHook = true
			return false // stop: this hook yielded an attribution
		}
		return true
	})
	if err != nil {
		log.Debugf("attributor: hook run failed: %v", err)
		return false
	}

	return attributedByHook
}

// findPidfileRef looks for a reference to a pidfile under root in the
// script body, returning the first one that exists on disk.
func findPidfileRef(body, root string) string {
	pattern := regexp.MustCompile(regexp.QuoteMeta(filepath.Clean(root)) + `/[A-Za-z0-9_./-]+\.pid`)
	for _, m := range pattern.FindAllString(body, -1) {
		if pathExists(m) {
			return m
		}
	}
	return ""
}

// Package classify implements the ObsolescenceClassifier: per-pid
// orchestration of the deleted-exe check, the blacklist, MapScanner, and the
// optional interpreter-probe fallback.
package classify

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/mapscan"
	"github.com/phillipberndt/needrestart/internal/model"
	"github.com/phillipberndt/needrestart/internal/proctable"
)

// InterpreterProber is the pluggable collaborator that, given a pid and its
// exe path, reports an obsolete interpreter source file if it can find one.
// Real per-interpreter plugins are out of scope per spec.md's Non-goals;
// this seam exists purely so a caller can supply one.
type InterpreterProber interface {
	ObsoleteSource(pid int, exePath string) (path string, ok bool)
}

// Options configures one classifier run, translating the configuration
// surface of spec.md 6 into compiled matchers.
type Options struct {
	// Blacklist holds compiled exe-path regexes; a matching pid is never
	// inspected.
	Blacklist []*regexp.Regexp

	// InterpScan enables the interpreter prober pass.
	InterpScan bool
	Prober     InterpreterProber

	// Unprivileged restricts inspection to the caller's own uid.
	Unprivileged bool
	CallerUID    uint32
}

// CompileBlacklist turns the configured regex strings into matchers,
// grounded on the teacher's corechecks pattern of compiling
// device/filesystem blacklists once at check-config time rather than per
// call (pkg/collector/corechecks/system/disk/diskv2).
func CompileBlacklist(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid blacklist pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Classify runs the ObsolescenceClassifier for one pid against a frozen
// ProcTable snapshot.
func Classify(pid model.PidInfo, procPath string, opts Options) model.ObsolescenceReason {
	if opts.Unprivileged && pid.Uid != opts.CallerUID {
		return model.ObsolescenceReason{}
	}

	for _, re := range opts.Blacklist {
		if re.MatchString(pid.ExePath) {
			log.Debugf("pid %d (%s) excluded by blacklist pattern %s", pid.Pid, pid.ExePath, re.String())
			return model.ObsolescenceReason{}
		}
	}

	if pid.ExeDeleted {
		return model.ObsolescenceReason{Kind: model.ReasonDeletedExe}
	}

	if v, ok := mapscan.Scan(pid.Pid, procPath); ok {
		if v.Reason.IsObsolete() {
			return v.Reason
		}
	} else {
		// Pid vanished mid-scan: treat as current/absent, never flagged.
		return model.ObsolescenceReason{}
	}

	if opts.InterpScan && opts.Prober != nil {
		if path, ok := opts.Prober.ObsoleteSource(pid.Pid, pid.ExePath); ok {
			return model.ObsolescenceReason{Kind: model.ReasonInterpreterSource, Path: path}
		}
	}

	return model.ObsolescenceReason{}
}

// ProcPathFor returns the per-pid procfs directory used by Classify's
// MapScanner call.
func ProcPathFor(pid int) string {
	return proctable.ProcPath() + "/" + strconv.Itoa(pid)
}

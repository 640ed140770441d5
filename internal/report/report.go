// Package report applies the Report's post-attribution policies (unit
// blacklist, override map) and serializes the result for batch-mode
// consumption. Grounded on the teacher's habit of keeping output formatting
// decoupled from collection (pkg/util/flavor style "compute, then render"
// split), rather than formatting inline as units are discovered.
package report

import (
	"fmt"
	"io"
	"regexp"

	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/model"
)

// Policy holds the compiled blacklist_rc patterns and the override_rc rules
// applied to a finished Report.
type Policy struct {
	BlacklistRC []*regexp.Regexp
	OverrideRC  []model.OverrideRule
}

// CompileBlacklistRC compiles the blacklist_rc pattern list.
func CompileBlacklistRC(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid blacklist_rc pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Apply drops any unit whose display name matches a blacklist_rc pattern
// and attaches the override_rc rules untouched, per spec.md 4.7. User
// sessions are never subject to the blacklist: they are not package-managed
// units.
func Apply(rpt *model.Report, policy Policy) {
	for key, u := range rpt.Units {
		name := u.String()
		for _, re := range policy.BlacklistRC {
			if re.MatchString(name) {
				log.Debugf("report: unit %s dropped by blacklist_rc pattern %s", name, re.String())
				rpt.RemoveUnit(key)
				break
			}
		}
	}
	rpt.OverrideRC = policy.OverrideRC
}

// kernelStatusCode maps a KernelVerdictKind to the NEEDRESTART-KSTA status
// code, the convention the original needrestart tool's batch mode uses.
func kernelStatusCode(k model.KernelVerdictKind) int {
	switch k {
	case model.KernelUpToDate:
		return 1
	case model.KernelAbiUpgrade:
		return 2
	case model.KernelVersionUpgrade:
		return 3
	default:
		return 0
	}
}

// WriteBatch serializes rpt as the fixed-prefix NEEDRESTART-* line format
// spec.md 6 requires for machine consumption.
func WriteBatch(w io.Writer, version string, rpt *model.Report) error {
	if _, err := fmt.Fprintf(w, "NEEDRESTART-VER: %s\n", version); err != nil {
		return err
	}

	for _, u := range rpt.SortedUnits() {
		if u.Kind == model.UnitUnknown {
			continue
		}
		if _, err := fmt.Fprintf(w, "NEEDRESTART-SVC: %s\n", u.String()); err != nil {
			return err
		}
	}

	for _, op := range rpt.UnattributedPids {
		if _, err := fmt.Fprintf(w, "NEEDRESTART-PID: %d %s\n", op.Pid.Pid, op.Pid.Comm); err != nil {
			return err
		}
	}

	if rpt.Kernel != nil {
		if _, err := fmt.Fprintf(w, "NEEDRESTART-KCUR: %s\n", rpt.Kernel.Current); err != nil {
			return err
		}
		if rpt.Kernel.Expected != "" {
			if _, err := fmt.Fprintf(w, "NEEDRESTART-KEXP: %s\n", rpt.Kernel.Expected); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "NEEDRESTART-KSTA: %d\n", kernelStatusCode(rpt.Kernel.Kind)); err != nil {
			return err
		}
	}

	return nil
}

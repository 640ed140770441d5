// Package scanner ties ProcTable, ObsolescenceClassifier, ProcessAttributor
// and KernelScanner together into the single sequential pass spec.md 5
// describes: one frozen snapshot, pids visited in ascending order, no
// parallelism across pids.
package scanner

import (
	"context"

	"github.com/phillipberndt/needrestart/internal/attributor"
	"github.com/phillipberndt/needrestart/internal/classify"
	"github.com/phillipberndt/needrestart/internal/collab"
	"github.com/phillipberndt/needrestart/internal/kernelscan"
	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/model"
	"github.com/phillipberndt/needrestart/internal/proctable"
)

// Options bundles every collaborator and policy knob a scan needs.
// BuildTable and ProcPathFor default to the real procfs-backed
// implementations; tests override them to drive the pipeline against a
// synthetic fixture without touching /proc.
type Options struct {
	Classify  classify.Options
	Attribute attributor.Options

	KernelHints bool
	Kernel      kernelscan.Scanner

	Progress collab.ProgressSink

	BuildTable func() (*proctable.Table, error)
	ProcPathFor func(pid int) string
}

// Run performs one complete obsolescence-detection pass. If ctx is canceled
// partway through, Run returns the context's error and no report, per
// spec.md 5's "if so, no partial report is emitted".
func Run(ctx context.Context, opts Options) (*model.Report, error) {
	if opts.Progress == nil {
		opts.Progress = collab.NopProgressSink{}
	}
	if opts.BuildTable == nil {
		opts.BuildTable = proctable.Build
	}
	if opts.ProcPathFor == nil {
		opts.ProcPathFor = classify.ProcPathFor
	}

	table, err := opts.BuildTable()
	if err != nil {
		return nil, err
	}

	rpt := model.NewReport()
	pids := table.SortedPids()
	opts.Progress.Prep(len(pids), "scanning processes")
	defer opts.Progress.Fin()

	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts.Progress.Step()

		if table.IsIgnored(pid) {
			continue
		}
		info, ok := table.Lookup(pid)
		if !ok {
			continue
		}

		reason := classify.Classify(info, opts.ProcPathFor(pid), opts.Classify)
		if !reason.IsObsolete() {
			continue
		}

		log.Debugf("pid %d (%s) obsolete: %s", info.Pid, info.Comm, reason)
		attributor.Attribute(ctx, info, reason, table, rpt, opts.Attribute)
	}

	if opts.KernelHints {
		verdict, err := kernelscan.Scan(opts.Kernel)
		if err != nil {
			log.Warnf("kernel scan failed: %v", err)
		} else {
			rpt.Kernel = &verdict
		}
	}

	return rpt, nil
}

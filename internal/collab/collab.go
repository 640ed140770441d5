// Package collab defines the narrow, pluggable collaborator interfaces the
// core composes by parameter injection: the hook runner, the service
// manager probe, and the UI progress sink. Each is deliberately small,
// matching spec.md 9's "dynamic dispatch over UI/hook/probe... expressed as
// an interface abstraction... no global registry."
package collab

import "context"

// HookLine is one KIND|VALUE line emitted by a hook script.
type HookLine struct {
	Kind  string // "PACKAGE" or "RC"
	Value string
}

// HookRunner invokes each per-package-manager hook script in turn, passing
// the exe path under inspection, and streams back its output lines. The
// hook scripts themselves are out of scope per spec.md 1; this interface is
// the seam the core depends on.
type HookRunner interface {
	// Run invokes hooks in naturally-sorted filename order, calling
	// handle once per hook with that hook's parsed output lines. handle
	// returns whether the runner should proceed to the next hook; once
	// it returns false, Run stops, implementing spec.md 4.5.7's "stop
	// after the first hook that yielded any attribution".
	Run(ctx context.Context, verbose bool, exePath string, handle func(hookName string, lines []HookLine) (proceed bool)) error
}

// ServiceManagerProbe resolves a pid to the systemd unit name managing it,
// used both as the attribution fallback path (spec.md 4.5.6) and noted in
// the Open Questions as the pathway that should do its own explicit
// "*.service" token parsing rather than relying on the original's
// undefined regex-capture-group behavior.
type ServiceManagerProbe interface {
	UnitForPID(ctx context.Context, pid int) (unit string, ok bool)
}

// ProgressSink is the opaque UI collaborator: progress_prep/progress_step/
// progress_fin, per spec.md 6. It has no method for diagnostic output.
type ProgressSink interface {
	Prep(total int, label string)
	Step()
	Fin()
}

// NopProgressSink discards every call, used by batch mode and tests.
type NopProgressSink struct{}

func (NopProgressSink) Prep(int, string) {}
func (NopProgressSink) Step()            {}
func (NopProgressSink) Fin()             {}

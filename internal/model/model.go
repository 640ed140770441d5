// Package model holds the data types shared by every stage of the
// obsolescence-detection pipeline: the process snapshot, the per-mapping
// verdicts, and the aggregated report.
package model

import "fmt"

// PidInfo is the immutable per-process view produced by a single ProcTable
// snapshot. A pid that disappears after the snapshot is simply absent from
// later lookups; there is no tombstone record for it.
type PidInfo struct {
	Pid         int
	Ppid        int
	Uid         uint32
	Comm        string
	TTYDevPath  string // empty if the process has no controlling terminal
	ExePath     string // target of the exe symlink, "" if unreadable
	ExeDeleted  bool
	StartTicks  uint64 // process start time in clock ticks, as read at snapshot time; not compared later in the scan
}

// Mapping is one file-backed, executable line of a pid's memory map.
type Mapping struct {
	Path      string
	DevIDText string // literal "major:minor" text as printed by the kernel
	Inode     uint64
}

// FileIdent is the (device, inode) pair of an on-disk file as observed by
// stat(2).
type FileIdent struct {
	Dev   uint64
	Inode uint64
}

// ReasonKind tags an ObsolescenceReason.
type ReasonKind int

const (
	// ReasonNone marks a pid that is not obsolete.
	ReasonNone ReasonKind = iota
	ReasonDeletedExe
	ReasonMissingBacking
	ReasonStaleMapping
	ReasonInterpreterSource
)

// ObsolescenceReason explains why a pid was classified obsolete. Path is
// populated for every kind except ReasonDeletedExe, where the exe path is
// already known from PidInfo.
type ObsolescenceReason struct {
	Kind ReasonKind
	Path string
}

// IsObsolete reports whether r represents an obsolete verdict.
func (r ObsolescenceReason) IsObsolete() bool {
	return r.Kind != ReasonNone
}

func (r ObsolescenceReason) String() string {
	switch r.Kind {
	case ReasonNone:
		return "current"
	case ReasonDeletedExe:
		return "deleted exe"
	case ReasonMissingBacking:
		return fmt.Sprintf("missing backing file: %s", r.Path)
	case ReasonStaleMapping:
		return fmt.Sprintf("stale mapping: %s", r.Path)
	case ReasonInterpreterSource:
		return fmt.Sprintf("obsolete interpreter source: %s", r.Path)
	default:
		return "unknown"
	}
}

// UnitKind tags a ControllableUnit.
type UnitKind int

const (
	UnitServiceManagerRoot UnitKind = iota
	UnitLegacyInit
	UnitServiceUnit
	UnitInitScript
	UnitUserSession
	UnitUnknown
)

// ControllableUnit is the smallest named entity an operator (or automation
// driver) can ask the service manager or legacy init system to restart.
type ControllableUnit struct {
	Kind UnitKind

	// Name is the systemd unit name, populated when Kind == UnitServiceUnit.
	Name string

	// Path is the init-script path, populated when Kind == UnitInitScript.
	Path string

	// Uid and SessionID are populated when Kind == UnitUserSession.
	Uid       uint32
	SessionID string
}

// Key returns a value suitable for deduplicating units in a set, honoring
// the invariant that ServiceUnit("X.service") and InitScript(".../X") never
// coexist (that de-duplication is applied by the caller, not encoded here).
func (u ControllableUnit) Key() string {
	switch u.Kind {
	case UnitServiceManagerRoot:
		return "root:service-manager"
	case UnitLegacyInit:
		return "root:legacy-init"
	case UnitServiceUnit:
		return "service:" + u.Name
	case UnitInitScript:
		return "initscript:" + u.Path
	case UnitUserSession:
		return fmt.Sprintf("session:%d:%s", u.Uid, u.SessionID)
	default:
		return "unknown"
	}
}

func (u ControllableUnit) String() string {
	switch u.Kind {
	case UnitServiceManagerRoot:
		return "service-manager"
	case UnitLegacyInit:
		return "init"
	case UnitServiceUnit:
		return u.Name
	case UnitInitScript:
		return u.Path
	case UnitUserSession:
		return fmt.Sprintf("session %s (uid %d)", u.SessionID, u.Uid)
	default:
		return "unknown"
	}
}

// KernelVerdictKind tags a KernelVerdict.
type KernelVerdictKind int

const (
	KernelUpToDate KernelVerdictKind = iota
	KernelAbiUpgrade
	KernelVersionUpgrade
	KernelUnknown
)

// KernelVerdict is the outcome of comparing the running kernel against the
// newest kernel image installed on disk.
type KernelVerdict struct {
	Kind     KernelVerdictKind
	Current  string
	Expected string
}

// ObsoletePid bundles a classified pid with the reason it was flagged. It is
// the element type of Report.UnattributedPids, so a pid that resolved to no
// controllable unit can still be named individually.
type ObsoletePid struct {
	Pid    PidInfo
	Reason ObsolescenceReason
}

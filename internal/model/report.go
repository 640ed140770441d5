package model

import "sort"

// Report is the final, structured output of one scan. It lives only for the
// duration of the scan that produced it.
type Report struct {
	// Units holds every distinct ControllableUnit attributed to at least
	// one obsolete pid, keyed by ControllableUnit.Key so duplicates
	// collapse naturally.
	Units map[string]ControllableUnit

	// UserSessions: uid -> session id -> comm -> set of pids.
	UserSessions map[uint32]map[string]map[string]map[int]struct{}

	Kernel *KernelVerdict

	// OverrideRC is recorded untouched; the core never interprets it, it
	// only carries it through to the caller per spec.md 4.7.
	OverrideRC []OverrideRule

	// UnattributedPids holds every obsolete pid that the attributor could
	// not resolve to any controllable unit, kept individually (rather
	// than collapsed into the single UnitUnknown bucket) so a batch-mode
	// serialization can still name the pid responsible.
	UnattributedPids []ObsoletePid
}

// OverrideRule is one entry of the ordered override_rc map: a pattern and
// the restart policy the caller should apply when a unit name matches it.
type OverrideRule struct {
	Pattern string
	Restart bool
}

// NewReport returns an empty Report ready for population.
func NewReport() *Report {
	return &Report{
		Units:        make(map[string]ControllableUnit),
		UserSessions: make(map[uint32]map[string]map[string]map[int]struct{}),
	}
}

// AddUnit records u as attributed, keyed by u.Key so a repeated unit
// collapses into one entry. It does not apply the ServiceUnit/InitScript
// mutual exclusion: adding a ServiceUnit("X.service") leaves an
// already-present InitScript(".../X") in place. The attributor's hook step
// skips a non-pidfile candidate whose basename matches a recorded service
// unit.
func (r *Report) AddUnit(u ControllableUnit) {
	r.Units[u.Key()] = u
}

// RemoveUnit drops a previously recorded unit, used when a later signal
// (the service-manager probe fallback) supersedes an earlier bare-name
// guess.
func (r *Report) RemoveUnit(key string) {
	delete(r.Units, key)
}

// HasUnitNamed reports whether a ServiceUnit with the given name is already
// present.
func (r *Report) HasUnitNamed(name string) bool {
	u, ok := r.Units[ControllableUnit{Kind: UnitServiceUnit, Name: name}.Key()]
	return ok && u.Kind == UnitServiceUnit
}

// HasInitScriptNamed reports whether an InitScript unit whose basename
// (as computed by baseOf) equals basename is already present.
func (r *Report) HasInitScriptNamed(basename string, baseOf func(string) string) bool {
	for _, u := range r.Units {
		if u.Kind == UnitInitScript && baseOf(u.Path) == basename {
			return true
		}
	}
	return false
}

// AddUserSession records pid as belonging to a user session, dominating any
// unit attribution for the same pid (callers must not also call AddUnit for
// a pid routed here).
func (r *Report) AddUserSession(uid uint32, sessionID, comm string, pid int) {
	byUID, ok := r.UserSessions[uid]
	if !ok {
		byUID = make(map[string]map[string]map[int]struct{})
		r.UserSessions[uid] = byUID
	}
	byComm, ok := byUID[sessionID]
	if !ok {
		byComm = make(map[string]map[int]struct{})
		byUID[sessionID] = byComm
	}
	pids, ok := byComm[comm]
	if !ok {
		pids = make(map[int]struct{})
		byComm[comm] = pids
	}
	pids[pid] = struct{}{}
}

// AddUnattributedPid records pid (with the reason it was flagged obsolete)
// as having resolved to no controllable unit.
func (r *Report) AddUnattributedPid(pid PidInfo, reason ObsolescenceReason) {
	r.UnattributedPids = append(r.UnattributedPids, ObsoletePid{Pid: pid, Reason: reason})
}

// SortedUnits returns the attributed units in a deterministic order,
// suitable for serialization.
func (r *Report) SortedUnits() []ControllableUnit {
	out := make([]ControllableUnit, 0, len(r.Units))
	for _, u := range r.Units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

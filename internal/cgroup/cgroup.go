// Package cgroup reads and parses one pid's cgroup view
// (/proc/<pid>/cgroup), the colon-separated "id:controllers:path" lines the
// kernel exposes. Grounded on the teacher's pkg/util/cgroups/readerv1.go,
// which rolls its own cgroup-hierarchy walk rather than pulling in a
// cgroup-specific parsing library — none of the retrieved corpus's three
// cgroup-touching repos do either, the line format is small and
// domain-specific enough that a hand-rolled parser is the idiomatic choice.
package cgroup

import (
	"bufio"
	"os"
	"strings"
)

// Line is one parsed row of a cgroup view.
type Line struct {
	ID          string
	Controllers []string
	Path        string
}

// Read parses procPath + "/cgroup" for pid. A missing or unreadable file
// means the pid vanished or cgroups aren't mounted; callers treat an error
// the same as "no cgroup evidence".
func Read(procPath string) ([]Line, error) {
	f, err := os.Open(procPath + "/cgroup")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []Line
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l, ok := parseLine(scanner.Text())
		if ok {
			lines = append(lines, l)
		}
	}
	return lines, scanner.Err()
}

func parseLine(s string) (Line, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Line{}, false
	}
	var controllers []string
	if parts[1] != "" {
		controllers = strings.Split(parts[1], ",")
	}
	return Line{ID: parts[0], Controllers: controllers, Path: parts[2]}, true
}

// HasController reports whether l is tagged as belonging to the named
// controller — in practice "name=systemd" on cgroup v1 hybrid hierarchies,
// or the unified hierarchy's empty controller list on cgroup v2.
func (l Line) HasController(name string) bool {
	if len(l.Controllers) == 0 {
		// cgroup v2 unified hierarchy: id is always "0", controllers
		// list is empty, and every process's single line applies.
		return true
	}
	for _, c := range l.Controllers {
		if c == name || c == "name="+name {
			return true
		}
	}
	return false
}

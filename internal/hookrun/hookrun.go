// Package hookrun implements the default HookRunner: it executes every
// executable file in a directory, naturally sorted by filename, passing the inspected
// exe path as an argument, and parses each hook's stdout as "KIND|VALUE"
// lines.
package hookrun

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/phillipberndt/needrestart/internal/collab"
	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/natorder"
)

// Runner runs every executable file under Dir in natural filename order.
type Runner struct {
	Dir string
}

// Run implements collab.HookRunner.
func (r Runner) Run(ctx context.Context, verbose bool, exePath string, handle func(hookName string, lines []collab.HookLine) bool) error {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	natorder.Sort(names)

	for _, name := range names {
		path := filepath.Join(r.Dir, name)
		info, err := os.Stat(path)
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}

		lines, err := runHook(ctx, path, verbose, exePath)
		if err != nil {
			log.Debugf("hookrun: %s: %v", name, err)
			continue
		}

		if !handle(name, lines) {
			return nil
		}
	}
	return nil
}

func runHook(ctx context.Context, path string, verbose bool, exePath string) ([]collab.HookLine, error) {
	args := []string{exePath}
	if verbose {
		args = append(args, "-v")
	}
	cmd := exec.CommandContext(ctx, path, args...)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var lines []collab.HookLine
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		kind, value, ok := parseLine(scanner.Text())
		if ok {
			lines = append(lines, collab.HookLine{Kind: kind, Value: value})
		}
	}

	if err := cmd.Wait(); err != nil {
		// A nonzero exit is recoverable per spec.md 7: it is logged, and
		// any output already parsed is still returned to the caller.
		log.Debugf("hookrun: %s exited with error: %v", path, err)
	}

	return lines, scanner.Err()
}

func parseLine(line string) (kind, value string, ok bool) {
	idx := strings.IndexByte(line, '|')
	if idx < 0 {
		return "", "", false
	}
	kind = line[:idx]
	value = line[idx+1:]
	if kind != "PACKAGE" && kind != "RC" {
		return "", "", false
	}
	return kind, value, true
}

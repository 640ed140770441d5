package proctable

import (
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/phillipberndt/needrestart/internal/log"
)

// ttyIndex maps a packed tty_nr (as reported in /proc/<pid>/stat) to the
// /dev path of the matching character device, built once per scan by
// stat'ing the handful of terminal device nodes under /dev rather than
// re-walking /dev per pid.
type ttyIndex map[uint64]string

// ttyScanRoots lists the directories that can hold a controlling terminal
// device node on a modern Linux host.
var ttyScanRoots = []string{"/dev/pts", "/dev"}

func buildTTYIndex() ttyIndex {
	idx := make(ttyIndex)

	for _, root := range ttyScanRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			log.Debugf("tty index: skipping %s: %v", root, err)
			continue
		}
		for _, e := range entries {
			if root == "/dev" && !isConsoleOrTTYName(e.Name()) {
				continue
			}
			path := filepath.Join(root, e.Name())
			fi, err := os.Stat(path)
			if err != nil {
				continue
			}
			sys, ok := fi.Sys().(*syscall.Stat_t)
			if !ok || fi.Mode()&os.ModeCharDevice == 0 {
				continue
			}
			idx[sys.Rdev] = path
		}
	}

	return idx
}

// isConsoleOrTTYName restricts the /dev top-level scan to the conventional
// controlling-terminal device names (ttyN, ttySN, console) so we don't stat
// every device node on the host.
func isConsoleOrTTYName(name string) bool {
	if name == "console" {
		return true
	}
	return len(name) > 3 && name[:3] == "tty"
}

// resolve maps a raw tty_nr to a /dev path, comparing major/minor via
// golang.org/x/sys/unix rather than re-deriving the kernel's encoding by
// hand, since tty_nr uses the ordinary dev_t packing rather than the
// map-line textual encoding spec.md's DeviceEncoder is concerned with.
func (idx ttyIndex) resolve(ttyNr int) string {
	if ttyNr == 0 {
		return ""
	}
	dev := uint64(uint32(ttyNr))
	major, minor := unix.Major(dev), unix.Minor(dev)

	for rdev, path := range idx {
		if unix.Major(rdev) == major && unix.Minor(rdev) == minor {
			return path
		}
	}
	return ""
}

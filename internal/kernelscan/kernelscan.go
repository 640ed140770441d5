// Package kernelscan implements the KernelScanner: comparing the running
// kernel's version banner against every kernel image installed under the
// boot directory, deciding between UpToDate, AbiUpgrade, VersionUpgrade and
// Unknown. Grounded on the teacher's habit of hand-parsing small,
// domain-specific kernel-exposed text formats (pkg/util/kernel on Linux)
// rather than reaching for a generic binary-format library for what is, in
// the end, a fixed-grammar text scan over extracted strings.
package kernelscan

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/model"
	"github.com/phillipberndt/needrestart/internal/natorder"
)

// minStringLen mirrors the conventional default of the "strings" utility:
// shorter printable runs are noise, not banner fragments.
const minStringLen = 4

// imagePrefixes are the filename conventions under which Debian- and
// Red-Hat-family distributions install kernel images.
var imagePrefixes = []string{"vmlinuz-", "vmlinuz.", "vmlinux-", "kernel-"}

// bannerPattern matches the grammar shared by /proc/version and the banner
// string embedded in a kernel image: a release token, a builder identity in
// parentheses, and free-form build metadata. It is intentionally unanchored
// so it matches equally well against "Linux version 5.10.0-1-amd64 (b@h) ..."
// and the bare "5.10.0-1-amd64 (b@h) ..." a string-extraction pass yields.
var bannerPattern = regexp.MustCompile(`(\S+)\s+\([^)]*\)\s+(.+)`)

// Banner is one parsed release/build banner.
type Banner struct {
	Release string
	Raw     string
	tokens  map[string]struct{}
}

func parseBanner(line string) (Banner, bool) {
	m := bannerPattern.FindStringSubmatch(line)
	if m == nil {
		return Banner{}, false
	}
	raw := m[0]
	return Banner{Release: m[1], Raw: raw, tokens: tokenSet(raw)}, true
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// subsetOf reports whether every token of b is present in other, the test
// spec.md 4.6 uses to distinguish a byte-identical rebuild from an ABI
// upgrade that shares a release token.
func (b Banner) subsetOf(other Banner) bool {
	for t := range b.tokens {
		if _, ok := other.tokens[t]; !ok {
			return false
		}
	}
	return true
}

// ReadRunningBanner reads and parses procPath's "version" file.
func ReadRunningBanner(procPath string) (Banner, error) {
	data, err := os.ReadFile(filepath.Join(procPath, "version"))
	if err != nil {
		return Banner{}, err
	}
	line := strings.TrimSpace(string(data))
	b, ok := parseBanner(line)
	if !ok {
		return Banner{}, &BannerFormatError{Line: line}
	}
	return b, nil
}

// BannerFormatError is returned when a version string does not match the
// expected grammar.
type BannerFormatError struct {
	Line string
}

func (e *BannerFormatError) Error() string {
	return "kernelscan: unrecognised version banner: " + e.Line
}

// Scanner compares the running kernel against every image under BootDir.
type Scanner struct {
	ProcPath string
	BootDir  string
}

// Scan runs the KernelScanner's decision procedure (spec.md 4.6) once.
func Scan(s Scanner) (model.KernelVerdict, error) {
	if s.ProcPath == "" {
		s.ProcPath = "/proc"
	}
	if s.BootDir == "" {
		s.BootDir = "/boot"
	}

	running, err := ReadRunningBanner(s.ProcPath)
	if err != nil {
		log.Debugf("kernelscan: %v", err)
		return model.KernelVerdict{Kind: model.KernelUnknown}, nil
	}

	images, err := listImages(s.BootDir)
	if err != nil {
		log.Warnf("kernelscan: could not scan boot directory %s: %v", s.BootDir, err)
	}

	parsed := 0
	var greatestRelease string
	haveGreater := false
	var abiCandidate Banner
	haveAbi := false

	for _, path := range images {
		b, ok := bannerFromImage(path)
		if !ok {
			continue
		}
		parsed++

		switch {
		case natorder.Less(running.Release, b.Release):
			if !haveGreater || natorder.Less(greatestRelease, b.Release) {
				greatestRelease = b.Release
				haveGreater = true
			}
		case b.Release == running.Release:
			if !haveAbi && !b.subsetOf(running) {
				abiCandidate = b
				haveAbi = true
			}
		}
	}

	switch {
	case haveGreater:
		return model.KernelVerdict{Kind: model.KernelVersionUpgrade, Current: running.Release, Expected: greatestRelease}, nil
	case haveAbi:
		return model.KernelVerdict{Kind: model.KernelAbiUpgrade, Current: running.Release, Expected: abiCandidate.Release}, nil
	case parsed > 0:
		return model.KernelVerdict{Kind: model.KernelUpToDate, Current: running.Release}, nil
	default:
		return model.KernelVerdict{Kind: model.KernelUnknown}, nil
	}
}

func listImages(bootDir string) ([]string, error) {
	entries, err := os.ReadDir(bootDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		for _, prefix := range imagePrefixes {
			if strings.HasPrefix(name, prefix) {
				out = append(out, filepath.Join(bootDir, name))
				break
			}
		}
	}
	return out, nil
}

// bannerFromImage extracts printable strings from the image at path and
// returns the first one matching the banner grammar.
func bannerFromImage(path string) (Banner, bool) {
	f, err := os.Open(path)
	if err != nil {
		log.Debugf("kernelscan: could not open image %s: %v", path, err)
		return Banner{}, false
	}
	defer f.Close()

	found := Banner{}
	ok := false
	err = scanPrintableStrings(f, func(s string) bool {
		if b, matched := parseBanner(s); matched {
			found = b
			ok = true
			return false
		}
		return true
	})
	if err != nil && err != io.EOF {
		log.Debugf("kernelscan: error reading image %s: %v", path, err)
	}
	return found, ok
}

// scanPrintableStrings walks r byte by byte, collecting maximal runs of
// printable ASCII of at least minStringLen, and calls handle for each one.
// handle returning false stops the scan early.
func scanPrintableStrings(r io.Reader, handle func(string) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var cur []byte

	flush := func() bool {
		if len(cur) >= minStringLen {
			if !handle(string(cur)) {
				cur = cur[:0]
				return false
			}
		}
		cur = cur[:0]
		return true
	}

	for {
		b, err := br.ReadByte()
		if err != nil {
			flush()
			if err == io.EOF {
				return nil
			}
			return err
		}
		if b >= 0x20 && b < 0x7f {
			cur = append(cur, b)
			continue
		}
		if !flush() {
			return nil
		}
	}
}

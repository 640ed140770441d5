// Package device produces the candidate textual encodings of a filesystem
// device id, so that a Mapping's literal "major:minor" text can be matched
// against a stat(2) result regardless of which encoding the running kernel
// chose to print.
package device

import "fmt"

// Candidates returns the set of "hh:hh" strings that a Mapping's DevIDText
// may legitimately equal for the given numeric device id, per spec.md 4.2:
// the "modern" encoding, the "traditional" encoding, and the literal
// "00:00" fallback for kernels that report no device id for file-backed
// maps.
func Candidates(dev uint64) []string {
	modernMajor := ((dev >> 8) & 0xfff) | ((dev >> 32) &^ 0xfff)
	modernMinor := (dev & 0xff) | ((dev >> 12) &^ 0xff)

	traditionalMajor := dev >> 8
	traditionalMinor := dev & 0xff

	return []string{
		fmt.Sprintf("%02x:%02x", modernMajor, modernMinor),
		fmt.Sprintf("%02x:%02x", traditionalMajor, traditionalMinor),
		"00:00",
	}
}

// Matches reports whether devIDText (as read verbatim from a memory map
// line) identifies the same device as dev, honoring both the three literal
// candidate encodings and the "00:" anonymous-device exemption documented
// in spec.md 4.2. The exemption exists because copy-on-write and other
// virtual filesystems report no usable device id for their file-backed
// maps; without it every process mapping a file on such a filesystem would
// be falsely reported obsolete.
func Matches(devIDText string, dev uint64) bool {
	if len(devIDText) >= 3 && devIDText[:3] == "00:" {
		return true
	}
	for _, c := range Candidates(dev) {
		if devIDText == c {
			return true
		}
	}
	return false
}

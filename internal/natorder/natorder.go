// Package natorder implements natural-order string comparison: split into
// alternating numeric and non-numeric runs, compare numeric runs by integer
// value and non-numeric runs lexicographically. spec.md's Design Notes
// require this for both sorting hook script filenames and comparing kernel
// release tokens; no natural-sort library appears anywhere in the retrieved
// corpus, so this ~30-line algorithm is hand-rolled rather than imported.
package natorder

import "sort"

// Less reports whether a sorts before b under natural order.
func Less(a, b string) bool {
	ra, rb := split(a), split(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		ca, cb := ra[i], rb[i]
		if ca.numeric && cb.numeric {
			if ca.value != cb.value {
				return ca.value < cb.value
			}
			continue
		}
		if ca.text != cb.text {
			return ca.text < cb.text
		}
	}
	return len(ra) < len(rb)
}

// Sort orders ss in place by natural order.
func Sort(ss []string) {
	sort.Slice(ss, func(i, j int) bool { return Less(ss[i], ss[j]) })
}

type run struct {
	numeric bool
	value   uint64
	text    string // normalized comparison key: the numeric run's digits for numeric runs, else the raw text
}

func split(s string) []run {
	var runs []run
	i := 0
	for i < len(s) {
		start := i
		isDigit := s[i] >= '0' && s[i] <= '9'
		for i < len(s) && (s[i] >= '0' && s[i] <= '9') == isDigit {
			i++
		}
		chunk := s[start:i]
		if isDigit {
			var v uint64
			for _, c := range chunk {
				v = v*10 + uint64(c-'0')
			}
			runs = append(runs, run{numeric: true, value: v, text: chunk})
		} else {
			runs = append(runs, run{numeric: false, text: chunk})
		}
	}
	return runs
}

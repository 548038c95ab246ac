package pipeline

import (
	"regexp"
	"strconv"
)

var rangePattern = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)`)

// ExpandServiceRanges expands compact range tokens like "99242-99245" into
// the individual codes "99242".."99245". Tokens without a leading range
// pattern pass through unchanged, so running the result through again is a
// no-op. A reversed range ("99250-99248") expands to nothing; malformed
// tokens are never an error.
func ExpandServiceRanges(codes []string) []string {
	expanded := make([]string, 0, len(codes))

	for _, code := range codes {
		m := rangePattern.FindStringSubmatch(code)
		if m == nil {
			expanded = append(expanded, code)
			continue
		}

		start, errStart := strconv.Atoi(m[1])
		end, errEnd := strconv.Atoi(m[2])
		if errStart != nil || errEnd != nil {
			expanded = append(expanded, code)
			continue
		}

		for num := start; num <= end; num++ {
			expanded = append(expanded, strconv.Itoa(num))
		}
	}

	return expanded
}

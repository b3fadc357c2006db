package validator

import (
	"math"
	"strings"
)

const (
	minSizeLimit = 20
	maxSizeLimit = 80
)

// sizeDiff implements Gate 1 (spec.md §4.8): the changed-line count and
// its cap. changed is the line-count delta plus the number of line-index
// positions that differ between the two sources, after padding the
// shorter one with empty lines.
func sizeDiff(oldSource, newSource string) (changed, limit int) {
	oldLines := strings.Split(oldSource, "\n")
	newLines := strings.Split(newSource, "\n")

	changed = abs(len(newLines) - len(oldLines))

	n := len(oldLines)
	if len(newLines) > n {
		n = len(newLines)
	}
	for i := 0; i < n; i++ {
		var o, nw string
		if i < len(oldLines) {
			o = oldLines[i]
		}
		if i < len(newLines) {
			nw = newLines[i]
		}
		if o != nw {
			changed++
		}
	}

	limit = int(math.Round(0.6 * float64(len(oldLines))))
	if limit < minSizeLimit {
		limit = minSizeLimit
	}
	if limit > maxSizeLimit {
		limit = maxSizeLimit
	}
	return changed, limit
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

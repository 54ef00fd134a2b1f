package google

import (
	"fmt"
	"strconv"
	"strings"
)

// firstColumn flattens a values matrix to its trimmed first cells, keeping
// one entry per row so indexes stay row numbers minus one.
func firstColumn(values [][]interface{}) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out
}

// rowFromRange extracts the first row number from an A1 range such as
// "'Transactions'!A5:G5".
func rowFromRange(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

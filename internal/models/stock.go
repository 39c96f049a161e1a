package models

import (
	"strconv"
	"strings"
)

// StockNumerator returns the available count encoded in a stock string:
// the whole value for a bare count ("7"), or the part before the slash for
// a "have/max" pair ("3/10"). ok is false when the value does not parse.
func StockNumerator(stock string) (int, bool) {
	head, _, _ := strings.Cut(stock, "/")
	have, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, false
	}
	return have, true
}

// IsStockAvailable reports whether at least one unit is available.
// Unparseable stock counts as unavailable.
func IsStockAvailable(stock string) bool {
	have, ok := StockNumerator(stock)
	return ok && have >= 1
}

// IsOverstock reports whether a "have/max" stock string describes an
// overstocked item: supply meets or exceeds capacity, or capacity is zero.
// Bare counts and unparseable values are never overstock.
func IsOverstock(stock string) bool {
	head, tail, found := strings.Cut(stock, "/")
	if !found {
		return false
	}
	have, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return false
	}
	max, err := strconv.Atoi(strings.TrimSpace(tail))
	if err != nil {
		return false
	}
	return have >= max || max == 0
}

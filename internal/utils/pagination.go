// Package utils provides small, domain-free helpers shared by the HTTP and
// service layers.
package utils

import "strconv"

// Page limits applied to every paginated listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes page (>= 1) and pageSize (1..MaxPageSize, 0 meaning
// DefaultPageSize) and returns the matching row offset.
func ClampPage(page, pageSize int) (p, size, offset int) {
	p, size = page, pageSize
	if p < 1 {
		p = 1
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return p, size, (p - 1) * size
}

// ParsePage reads page and page_size query values through AtoiDefault and
// ClampPage.
func ParsePage(pageStr, sizeStr string) (page, pageSize int) {
	page, pageSize, _ = ClampPage(AtoiDefault(pageStr, 1), AtoiDefault(sizeStr, DefaultPageSize))
	return page, pageSize
}

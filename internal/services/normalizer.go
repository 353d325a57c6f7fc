package services

import (
	"strings"
	"unicode"
)

// Normalize collapses every run of non-ASCII characters and whitespace into a single
// space, trims the result and lower-cases it.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > unicode.MaxASCII || isASCIISpace(c) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}

	return b.String()
}

func isASCIISpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

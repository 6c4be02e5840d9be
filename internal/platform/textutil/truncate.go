package textutil

import "unicode/utf8"

const truncationMarker = "..."

// Truncate cuts s to at most maxBytes bytes plus a marker, never splitting
// a UTF-8 sequence.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + truncationMarker
}

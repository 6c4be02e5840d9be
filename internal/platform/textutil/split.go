// Package textutil splits plain text into Telegram-sized messages.
//
// Telegram counts message length in UTF-16 code units, so all limits here
// are expressed in code units rather than bytes or runes.
package textutil

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MaxMessageSize is the size of one outgoing message part. It stays below
// Telegram's 4096 limit.
const MaxMessageSize = 4000

// UTF16Len returns the number of UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// utf16Prefix returns the longest prefix of s that fits in maxUnits.
func utf16Prefix(s string, maxUnits int) string {
	units := 0

	for i, r := range s {
		n := 1
		if r > 0xFFFF {
			n = 2
		}

		if units+n > maxUnits {
			return s[:i]
		}

		units += n
	}

	return s
}

// Split breaks text into parts of at most limit UTF-16 code units,
// preferring paragraph, line, sentence and word boundaries in that order.
// Joining the parts yields the original text.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageSize
	}

	if text == "" {
		return nil
	}

	var parts []string

	for text != "" {
		part, rest := splitOnce(text, limit)
		parts = append(parts, part)
		text = rest
	}

	return parts
}

var boundaries = []string{"\n\n", "\n", ". ", " "}

func splitOnce(text string, limit int) (string, string) {
	if UTF16Len(text) <= limit {
		return text, ""
	}

	window := utf16Prefix(text, limit)

	for _, sep := range boundaries {
		if pos := strings.LastIndex(window, sep); pos > 0 {
			at := pos + len(sep)

			return text[:at], text[at:]
		}
	}

	if window == "" {
		// limit smaller than the first rune
		_, size := utf8.DecodeRuneInString(text)

		return text[:size], text[size:]
	}

	return window, text[len(window):]
}

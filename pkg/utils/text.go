// Package utils provides shared helpers for text and logging.
package utils

import "unicode/utf8"

// Truncate returns s cut to maxLen characters (runes), with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// Plural returns singular when n is 1 and singular+"s" otherwise.
func Plural(n int, singular string) string {
	if n == 1 {
		return singular
	}
	return singular + "s"
}

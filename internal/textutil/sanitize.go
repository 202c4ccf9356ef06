package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxTitleRunes = 60

// SafeTitle converts a free-form title into a filename segment. Letters
// (including CJK) and digits are kept, every other rune becomes an underscore,
// and runs of underscores collapse. Returns fallback when nothing usable
// remains.
func SafeTitle(title, fallback string) string {
	title = strings.TrimSpace(title)
	var b strings.Builder
	lastUnderscore := false
	count := 0
	for _, r := range title {
		if count >= maxTitleRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			count++
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
			count++
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return fallback
	}
	return out
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

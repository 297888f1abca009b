// Package util provides small parsing helpers shared by the command handlers and the CLI.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// SplitArgs splits a command line on whitespace. Double-quoted sections are kept
// together with their quotes removed; "" inside a quoted section is a literal quote.
func SplitArgs(line string) []string {
	var (
		args    []string
		b       strings.Builder
		quoted  bool
		started bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' && quoted && i+1 < len(runes) && runes[i+1] == '"':
			b.WriteRune('"')
			i++
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				args = append(args, b.String())
				b.Reset()
				started = false
			}
		default:
			b.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, b.String())
	}
	return args
}

// ParseIndex parses a 1-based entity index.
func ParseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	if i < 1 {
		return 0, fmt.Errorf("invalid index %d: must be 1 or greater", i)
	}
	return i, nil
}

// SplitKeyValue splits "key=value". ok is false when there is no '=' or the key is empty.
func SplitKeyValue(s string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, TrimQuotes(strings.TrimSpace(value)), true
}

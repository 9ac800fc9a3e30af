// Package match decides which source files a transfer skips, using
// doublestar patterns evaluated against paths relative to the source root.
package match

import (
	"strings"
)

// Glob metacharacters that can be escaped with backslash in patterns.
const globEscapable = `*?[]{}\`

// NormalizePattern converts a user-provided glob pattern to canonical form.
//
// Unescaped backslashes become forward slashes, so "tmp\**" and "tmp/**"
// are the same pattern. Escapes of glob metacharacters (\*, \?, \[ and so
// on) are kept for literal matching.
//
// Examples:
//
//	"tmp/**"          → "tmp/**"
//	"logs\2024/*.gz"  → "logs/2024/*.gz"
//	"part\*.crc"      → "part\*.crc"
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(pattern))

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\\' && i+1 < len(runes) {
			next := runes[i+1]
			if strings.ContainsRune(globEscapable, next) {
				result.WriteRune('\\')
				result.WriteRune(next)
				i++
				continue
			}
			result.WriteRune('/')
			continue
		}

		if r == '\\' {
			result.WriteRune('/')
			continue
		}

		result.WriteRune(r)
	}

	return result.String()
}

// baseName returns the last segment of a slash-separated path.
func baseName(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

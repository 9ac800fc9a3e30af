package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates exclude patterns against relative file paths.
//
// A pattern containing a slash is matched against the whole relative path.
// A pattern without one also matches the base name at any depth, so
// "_SUCCESS" skips every Hadoop marker file in the tree.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	excludes []pattern
}

type pattern struct {
	raw      string
	baseOnly bool
}

// Config configures a Matcher.
type Config struct {
	// Excludes are glob patterns a file must not match. Empty keeps every
	// file.
	Excludes []string
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher. It fails with *PatternError on the first pattern
// doublestar cannot compile.
func New(cfg Config) (*Matcher, error) {
	excludes := make([]pattern, 0, len(cfg.Excludes))
	for _, raw := range cfg.Excludes {
		normalized := NormalizePattern(raw)
		if normalized == "" || !doublestar.ValidatePattern(normalized) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
		excludes = append(excludes, pattern{
			raw:      normalized,
			baseOnly: !strings.Contains(normalized, "/"),
		})
	}
	return &Matcher{excludes: excludes}, nil
}

// Match returns true if rel survives the exclude patterns. rel is relative
// to the source root and slash-separated.
func (m *Matcher) Match(rel string) bool {
	for _, exc := range m.excludes {
		if matchPattern(exc.raw, rel) {
			return false
		}
		if exc.baseOnly && matchPattern(exc.raw, baseName(rel)) {
			return false
		}
	}
	return true
}

func matchPattern(pattern, rel string) bool {
	matched, err := doublestar.Match(pattern, rel)
	if err != nil {
		// Validated in New.
		return false
	}
	return matched
}

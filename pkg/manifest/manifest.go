// Package manifest loads job files: lists of source/destination pairs that
// "goferry file" runs one after another.
//
// Three formats are accepted, chosen by extension:
//
//   - .yaml/.yml: a mapping with a "jobs" list of {source, destination}
//   - .json: the same shape as JSON
//   - anything else: one job per line, source and destination separated by
//     whitespace (normally a tab)
//
// A job file is all-or-nothing: any malformed entry rejects the whole file
// before a single transfer starts.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrValidationFailed indicates the job file parsed but describes no valid
// work.
var ErrValidationFailed = errors.New("job file validation failed")

// JobList is a validated job file.
type JobList struct {
	// Jobs run in file order.
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Job is one tree transfer.
type Job struct {
	// Source is the root to copy from.
	Source string `json:"source" yaml:"source"`

	// Destination is the root to copy to. It is the destination itself, not
	// its parent.
	Destination string `json:"destination" yaml:"destination"`
}

// Len returns the number of jobs.
func (l *JobList) Len() int { return len(l.Jobs) }

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path locates the problem, e.g. "line 3" or "/jobs/2/source".
	Path string

	// Message describes the validation failure.
	Message string
}

// Error implements error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap lets callers match ErrValidationFailed.
func (e ValidationErrors) Unwrap() error { return ErrValidationFailed }

// Validate checks that there is at least one job and that every job names
// both ends, then checks the list against the job-file schema.
func (l *JobList) Validate() error {
	if len(l.Jobs) == 0 {
		return ValidationErrors{{Path: "/jobs", Message: "no jobs"}}
	}

	var errs ValidationErrors
	for i, j := range l.Jobs {
		if strings.TrimSpace(j.Source) == "" {
			errs = append(errs, ValidationError{Path: fmt.Sprintf("/jobs/%d/source", i), Message: "required"})
		}
		if strings.TrimSpace(j.Destination) == "" {
			errs = append(errs, ValidationError{Path: fmt.Sprintf("/jobs/%d/destination", i), Message: "required"})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to serialize job list for validation: %w", err)
	}
	return ValidateRaw(data)
}

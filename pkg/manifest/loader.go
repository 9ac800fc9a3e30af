package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a job file from the given path.
//
// Returns an error if:
//   - The file cannot be read (not found, permission denied, etc.)
//   - The content does not parse in the format its extension selects
//   - Any entry is malformed
func Load(path string) (*JobList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job file not found: %s: %w", path, fs.ErrNotExist)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading job file: %s: %w", path, fs.ErrPermission)
		}
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a job file from raw bytes.
//
// The path parameter is used for error messages and format detection.
func LoadFromBytes(data []byte, path string) (*JobList, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("job file is empty")
	}

	var (
		jobs *JobList
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		jobs, err = parseYAML(data)
	case ".json":
		jobs, err = parseJSON(data)
	default:
		jobs, err = parseLines(data)
	}
	if err != nil {
		return nil, err
	}

	if err := jobs.Validate(); err != nil {
		return nil, err
	}

	// The typed decode coerces scalars, so structured files are also checked
	// as written.
	var raw []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if raw, err = yamlToJSON(data); err != nil {
			return nil, err
		}
	case ".json":
		raw = data
	}
	if raw != nil {
		if err := ValidateRaw(raw); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// LoadFromReader reads and validates a job file from an io.Reader.
func LoadFromReader(r io.Reader, path string) (*JobList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// parseYAML rejects unknown keys so a typo cannot silently drop a job.
func parseYAML(data []byte) (*JobList, error) {
	var jobs JobList
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&jobs); err != nil {
		return nil, fmt.Errorf("invalid YAML in job file: %w", err)
	}
	return &jobs, nil
}

func parseJSON(data []byte) (*JobList, error) {
	var jobs JobList
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&jobs); err != nil {
		return nil, fmt.Errorf("invalid JSON in job file: %w", err)
	}
	return &jobs, nil
}

// parseLines reads "source<whitespace>destination" lines. Blank lines and
// lines starting with '#' are skipped; any other line must hold exactly two
// fields.
func parseLines(data []byte) (*JobList, error) {
	var (
		jobs JobList
		errs ValidationErrors
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("line %d", n),
				Message: fmt.Sprintf("want 2 fields (source, destination), got %d", len(fields)),
			})
			continue
		}
		jobs.Jobs = append(jobs.Jobs, Job{Source: fields[0], Destination: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &jobs, nil
}

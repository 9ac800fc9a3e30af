package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"

	schemasassets "github.com/3leaps/goferry/internal/assets/schemas"
)

// SchemaID is the schema identifier for job files.
const SchemaID = "goferry/v1.0.0/job-file"

// ErrSchemaNotFound indicates the embedded schema is missing.
var ErrSchemaNotFound = errors.New("job file schema not found")

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidateRaw checks raw JSON against the job-file schema. Unknown fields
// are rejected here even when a struct decode would drop them.
func ValidateRaw(jsonData []byte) error {
	v, err := getValidator()
	if err != nil {
		return err
	}

	diags, err := v.ValidateJSON(jsonData)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{Path: d.Pointer, Message: d.Message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// yamlToJSON re-encodes a YAML document as JSON for schema validation.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in job file: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML in job file: %w", err)
	}
	return out, nil
}

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.JobFileSchema) == 0 {
			validatorErr = fmt.Errorf("%w: embedded job-file schema is empty", ErrSchemaNotFound)
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.JobFileSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("failed to compile job file schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}

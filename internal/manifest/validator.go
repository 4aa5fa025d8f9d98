package manifest

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/agentx-labs/unithost/internal/schema"
	"go.yaml.in/yaml/v3"
)

//go:embed schema/unit.schema.json
var schemaBytes []byte

var unitSchema = schema.New("unit.schema.json", schemaBytes)

// ValidationResult contains the outcome of a manifest validation.
type ValidationResult = schema.Result

// ValidationIssue represents a single validation error.
type ValidationIssue = schema.Issue

// InvalidError reports a manifest that failed validation.
type InvalidError struct {
	Path   string
	Result *ValidationResult
}

func (e *InvalidError) Error() string {
	msgs := make([]string, 0, len(e.Result.Issues))
	for _, issue := range e.Result.Issues {
		msgs = append(msgs, issue.String())
	}
	return fmt.Sprintf("invalid manifest %s: %s", e.Path, strings.Join(msgs, "; "))
}

// Validate validates raw YAML bytes against the unit manifest schema and
// checks that the version is a semantic version.
// The error return is for parse or schema compilation failures.
func Validate(data []byte) (*ValidationResult, error) {
	result, err := unitSchema.ValidateYAML(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return result, nil
	}

	// The schema only guarantees a non-empty string.
	var m UnitManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if _, err := m.SemVer(); err != nil {
		return &ValidationResult{
			Valid: false,
			Issues: []ValidationIssue{{
				Path:    "/version",
				Keyword: "semver",
				Message: fmt.Sprintf("%q is not a semantic version: %v", m.Version, err),
			}},
		}, nil
	}
	return result, nil
}

// ValidateFile reads a file and validates it against the manifest schema.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(data)
}

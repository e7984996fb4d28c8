package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"dbt-review-harness/pkg/report"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // location (e.g. "scenarios[2].expected_risk")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile performs the full 3-phase validation pipeline on a
// scenario file.
// Phase 1: Structural (strict YAML decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
func ValidateFile(path string) (*Suite, []*ValidationError) {
	suite, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}

	var allErrors []*ValidationError
	allErrors = append(allErrors, validateSemantic(suite)...)
	allErrors = append(allErrors, ValidateDomain(suite)...)

	if len(allErrors) > 0 {
		return suite, allErrors
	}
	return suite, nil
}

// validateSemantic validates the suite against the generated JSON Schema.
func validateSemantic(suite *Suite) []*ValidationError {
	data, err := json.Marshal(suite)
	if err != nil {
		return []*ValidationError{semanticErr(fmt.Sprintf("marshal for schema validation: %v", err))}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{semanticErr(fmt.Sprintf("generate schema: %v", err))}
	}

	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []*ValidationError{semanticErr(fmt.Sprintf("unmarshal schema: %v", err))}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("scenario-v0.json", schemaDoc); err != nil {
		return []*ValidationError{semanticErr(fmt.Sprintf("add schema resource: %v", err))}
	}
	sch, err := c.Compile("scenario-v0.json")
	if err != nil {
		return []*ValidationError{semanticErr(fmt.Sprintf("compile schema: %v", err))}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []*ValidationError{semanticErr(fmt.Sprintf("unmarshal document: %v", err))}
	}

	if err := sch.Validate(doc); err != nil {
		var errs []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, cause := range flattenValidationErrors(ve) {
				errs = append(errs, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(cause.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", cause.ErrorKind),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, semanticErr(err.Error()))
		}
		return errs
	}
	return nil
}

func semanticErr(msg string) *ValidationError {
	return &ValidationError{Phase: "semantic", Message: msg, Severity: "error"}
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain performs Phase 3 domain-level validation.
// Returns a slice of errors; empty means valid.
func ValidateDomain(suite *Suite) []*ValidationError {
	var errs []*ValidationError

	if len(suite.Scenarios) == 0 {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     "scenarios",
			Message:  "at least one scenario is required",
			Severity: "error",
		})
		return errs
	}

	seen := make(map[string]bool)
	for i, s := range suite.Scenarios {
		loc := fmt.Sprintf("scenarios[%d]", i)

		if s.Name == "" {
			errs = append(errs, domainErr(loc+".name", "name is required"))
		} else if seen[s.Name] {
			errs = append(errs, domainErr(loc+".name", fmt.Sprintf("duplicate scenario name %q", s.Name)))
		}
		seen[s.Name] = true

		if len(s.Files) == 0 {
			errs = append(errs, domainErr(loc+".files", "files list is required and must be non-empty"))
		}
		for j, f := range s.Files {
			if f == "" {
				errs = append(errs, domainErr(fmt.Sprintf("%s.files[%d]", loc, j), "empty file path"))
			}
		}

		if !report.KnownRiskLevel(s.ExpectedRisk) {
			errs = append(errs, domainErr(loc+".expected_risk",
				fmt.Sprintf("unknown risk level %q, expected one of %s", s.ExpectedRisk, strings.Join(report.RiskLevels, ", "))))
		}

		for j, check := range s.Checks {
			if err := CompileCheck(check); err != nil {
				errs = append(errs, domainErr(fmt.Sprintf("%s.checks[%d]", loc, j), err.Error()))
			}
		}
	}

	return errs
}

func domainErr(path, msg string) *ValidationError {
	return &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "error"}
}

// HasErrors returns true if any entry is an error (not just a warning).
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

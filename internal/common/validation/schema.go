package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateDocument validates a decoded JSON document against a compiled
// schema and flattens the result into per-field errors.
func ValidateDocument(document interface{}, schema *gojsonschema.Schema) (*ValidationResult, error) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, resultErr := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
			Code:    strings.ToUpper(resultErr.Type()),
		})
	}
	return out, nil
}

// ValidateRaw validates raw JSON bytes against a compiled schema.
func ValidateRaw(raw []byte, schema *gojsonschema.Schema) (*ValidationResult, error) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, resultErr := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
			Code:    strings.ToUpper(resultErr.Type()),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// ValidateURL validates URL format
func ValidateURL(url string) bool {
	urlPattern := regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
	return urlPattern.MatchString(url)
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}

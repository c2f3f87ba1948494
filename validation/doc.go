// Package validation wraps go-playground/validator for llmx value types.
//
// Failures come back as VALIDATION_ERROR *errors.AppError values whose
// "fields" detail lists each failing field by its JSON name.
//
//	type ProviderConfig struct {
//	    Timeout time.Duration `json:"timeout" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
package validation

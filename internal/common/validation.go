package common

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Present fails for a nil *string. An empty match is still present.
func Present(fieldName string, value interface{}) *ValidationError {
	switch v := value.(type) {
	case nil:
		return &ValidationError{Field: fieldName, Value: value, Message: "is absent"}
	case *string:
		if v == nil {
			return &ValidationError{Field: fieldName, Value: value, Message: "is absent"}
		}
	}
	return nil
}

func validateRecord(r entity.InvoiceRecord) *Validator {
	v := NewValidator()
	for i, val := range r.Values() {
		v.Field(constants.Columns[i], val, Present)
	}
	return v
}

// IsComplete reports whether all four invoice fields are present.
func IsComplete(r entity.InvoiceRecord) bool {
	return !validateRecord(r).HasErrors()
}

// MissingFields lists absent fields in column order.
func MissingFields(r entity.InvoiceRecord) []string {
	errs := validateRecord(r).Errors()
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

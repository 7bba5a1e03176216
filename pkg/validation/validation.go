// Package validation carries field-level request errors from domain
// code up to the HTTP error mapper.
package validation

import "fmt"

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Errors struct {
	Errors []FieldError `json:"errors"`
}

func (v *Errors) Error() string {
	if len(v.Errors) == 1 {
		return fmt.Sprintf("validation error: %s %s", v.Errors[0].Field, v.Errors[0].Code)
	}
	return "validation error"
}

func New(field, code, message string) error {
	return &Errors{
		Errors: []FieldError{{Field: field, Code: code, Message: message}},
	}
}

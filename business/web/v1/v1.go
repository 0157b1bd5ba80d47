// Package v1 holds the cross-cutting error and validation types shared
// by every version 1 handler.
package v1

import (
	"encoding/json"
	"errors"

	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// RequestError is used to pass an error during the request through the
// application with web specific context. A request error wraps an
// underlying error carrying the HTTP status code it should be reported
// with and, optionally, a set of field-level validation errors.
type RequestError struct {
	Err    error
	Status int
	Fields FieldErrors
}

// NewRequestError wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors that
// should be reported directly to the client and not treated as fatal
// system errors.
func NewRequestError(err error, status int) error {
	return &RequestError{Err: err, Status: status}
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	d, err := json.Marshal(fe)
	if err != nil {
		return err.Error()
	}
	return string(d)
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)

	var found bool
	translator, found = uni.GetTranslator("en")
	if !found {
		panic("translator for english locale not found")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// Check validates the provided struct according to its declared
// validate tags, translating any failure into request-facing
// FieldErrors.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		fields := make(FieldErrors, 0, len(verrors))
		for _, verror := range verrors {
			field := FieldError{
				Field: verror.Field(),
				Error: verror.Translate(translator),
			}
			fields = append(fields, field)
		}
		return fields
	}
	return nil
}

// NewRequestErrorFromFields wraps field-level validation errors with a
// 400 status, the shape every submission handler returns them in.
func NewRequestErrorFromFields(fields FieldErrors) error {
	return &RequestError{Err: fields, Status: 400, Fields: fields}
}

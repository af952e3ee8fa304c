package contact

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// phoneSpecialChars are the non-digit characters a phone number may contain
const phoneSpecialChars = "+-() "

// NewValidator builds the validator used for contact payloads, with the
// custom phone and notfuture rules registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			return d.Time
		}
		return nil
	}, Date{})

	// The rules only fail on content, never on absence; required/omitempty
	// handle absence.
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("notfuture", validateNotFuture)

	return v
}

// validatePhone accepts digits and the characters + - ( ) and space
func validatePhone(fl validator.FieldLevel) bool {
	for _, c := range fl.Field().String() {
		if c >= '0' && c <= '9' {
			continue
		}
		if !strings.ContainsRune(phoneSpecialChars, c) {
			return false
		}
	}
	return true
}

// validateNotFuture rejects dates after today
func validateNotFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(time.Now())
}

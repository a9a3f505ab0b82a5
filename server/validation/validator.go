// Package validation checks request payloads before any model call is made.
// Struct rules come from go-playground/validator tags; the size of study
// material is bounded with a tiktoken token count.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/teilomillet/studyscribe/errors"
)

// FieldError describes one failed rule.
type FieldError struct {
	Field   string `json:"field"`           // The field that failed validation
	Message string `json:"message"`         // Human-readable error message
	Code    string `json:"code"`            // Machine-readable error code
	Value   string `json:"value,omitempty"` // The limit or allowed values, never user content
}

// Validator validates request structs and content budgets. It is safe for
// concurrent use.
type Validator struct {
	validate         *validator.Validate
	counter          *TokenCounter
	maxContentTokens int
}

// New returns a Validator. counter may be nil, in which case the content
// budget is not enforced.
func New(counter *TokenCounter, maxContentTokens int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Validator{validate: v, counter: counter, maxContentTokens: maxContentTokens}
}

// Struct validates s and converts rule violations into an
// InvalidRequestError listing every failed field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.NewInternalError("", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe),
			Message: describe(fe),
			Code:    fe.Tag() + "_validation_failed",
			Value:   fe.Param(),
		})
	}
	return errors.NewInvalidRequestError(fields[0].Message, map[string]interface{}{
		"fields": fields,
	})
}

// Content enforces the content token budget.
func (v *Validator) Content(field, content string) error {
	if v.counter == nil {
		return nil
	}
	return v.counter.ValidateContent(field, content, v.maxContentTokens)
}

// fieldPath drops the root struct name from the namespace, so
// "ChatRequest.messages[0].role" becomes "messages[0].role".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("field '%s' is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}

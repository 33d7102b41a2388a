package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// decimalRules are tags for decimal.Decimal fields. They inspect the value
// directly; a custom type func that returns a decimal would recurse.
var decimalRules = map[string]func(decimal.Decimal) bool{
	"decimal_gt0":  decimal.Decimal.IsPositive,
	"decimal_gte0": func(d decimal.Decimal) bool { return !d.IsNegative() },
}

// SetupValidator registers the ledger tags on gin's binding validator
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding validator is %T, not *validator.Validate", binding.Validator.Engine())
	}
	return RegisterValidations(v)
}

// RegisterValidations reports fields by their JSON (or form) name and adds
// the decimal tags
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
		}
		return name
	})

	for tag, rule := range decimalRules {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && rule(d)
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// FormatValidationErrors lists every rejected field; errors that did not come
// from the validator produce an empty list
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.Invalid(requestID, nil)
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fieldPath(e), Message: describe(e)})
	}
	return dto.Invalid(requestID, details)
}

func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// fieldPath drops the root struct: "CreatePurchaseOrderRequest.lines[0].quantity"
// becomes "lines[0].quantity"
func fieldPath(e validator.FieldError) string {
	if _, rest, ok := strings.Cut(e.Namespace(), "."); ok {
		return rest
	}
	return e.Field()
}

var fixedMessages = map[string]string{
	"required":     "This field is required",
	"uuid":         "Invalid UUID format",
	"decimal_gt0":  "Must be greater than zero",
	"decimal_gte0": "Must not be negative",
}

var boundMessages = map[string]string{
	"len":   "Must be exactly %s characters",
	"oneof": "Must be one of: %s",
	"gt":    "Must be greater than %s",
	"gte":   "Must be greater than or equal to %s",
	"lte":   "Must be less than or equal to %s",
	"min":   "Must be at least %s",
	"max":   "Must be at most %s",
}

// describe turns a field error into a sentence for API clients
func describe(e validator.FieldError) string {
	tag, kind := e.Tag(), e.Kind()
	switch {
	case (tag == "min" || tag == "max") && kind == reflect.String:
		return fmt.Sprintf(boundMessages[tag]+" characters", e.Param())
	case tag == "min" && kind == reflect.Slice:
		return fmt.Sprintf("Must contain at least %s item(s)", e.Param())
	}
	if msg, ok := fixedMessages[tag]; ok {
		return msg
	}
	if format, ok := boundMessages[tag]; ok {
		return fmt.Sprintf(format, e.Param())
	}
	return "Invalid value"
}

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	licensePlateRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-]{1,14}$`)

	ginOnce sync.Once
)

var customRules = map[string]validator.Func{
	"iso_date":      validateISODate,
	"listing_mode":  validateListingMode,
	"vehicle_year":  validateVehicleYear,
	"license_plate": validateLicensePlate,
}

func init() {
	Validate = validator.New()
	registerRules(Validate)
}

func registerRules(v *validator.Validate) {
	for tag, fn := range customRules {
		_ = v.RegisterValidation(tag, fn)
	}
}

// RegisterGinValidators makes the custom rules available to gin binding tags.
func RegisterGinValidators() {
	ginOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerRules(v)
		}
	})
}

// ValidationError collects field level failures.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// NewValidationError converts validator output into field messages.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		ve.AddError(fieldName(fe), describe(fe))
	}
	return ve
}

func (e *ValidationError) AddError(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Errors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(validationErrors)
	}
	return err
}

// Describe turns a binding error into a single client facing message.
func Describe(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(validationErrors).Error()
	}
	return err.Error()
}

func fieldName(fe validator.FieldError) string {
	return toSnake(fe.Field())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "iso_date":
		return "must be a date in YYYY-MM-DD format"
	case "listing_mode":
		return "must be SALE or RENTAL"
	case "vehicle_year":
		return "is not a plausible model year"
	case "license_plate":
		return "must be 2-15 upper case letters, digits, spaces or dashes"
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func validateListingMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "SALE", "RENTAL":
		return true
	}
	return false
}

// validateVehicleYear checks if vehicle year is reasonable
func validateVehicleYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	currentYear := int64(time.Now().Year())
	return year >= 1900 && year <= currentYear+1
}

func validateLicensePlate(fl validator.FieldLevel) bool {
	return licensePlateRegex.MatchString(fl.Field().String())
}

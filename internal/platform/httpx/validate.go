package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// hashtagPattern matches identifying tags such as "nickname#1234".
var hashtagPattern = regexp.MustCompile(`^[^\s#]{2,32}#[0-9]{4,6}$`)

// NewValidator returns a validator that reports JSON field names and knows the
// "hashtag" rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("hashtag", func(fl validator.FieldLevel) bool {
		return IsHashtag(fl.Field().String())
	})
	return v
}

// IsHashtag reports whether value is a well-formed identifying tag.
func IsHashtag(value string) bool {
	return hashtagPattern.MatchString(value)
}

// Validate runs struct validation and converts failures into a ValidationError.
func Validate(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.Validation(shared.FieldError{Message: err.Error()})
	}
	fields := make([]shared.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, shared.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return shared.Validation(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fe.Field())
	case "email":
		return fmt.Sprintf("%q must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%q must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%q must be at most %s characters", fe.Field(), fe.Param())
	case "hashtag":
		return fmt.Sprintf("%q must look like name#1234", fe.Field())
	case "hexcolor":
		return fmt.Sprintf("%q must be a hex color", fe.Field())
	case "oneof":
		return fmt.Sprintf("%q must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%q is invalid", fe.Field())
	}
}

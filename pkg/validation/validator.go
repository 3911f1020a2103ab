package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation limits for graph documents
	MaxNodeIDLength = 200
	MaxAxisLength   = 200
	MaxAxesPerNode  = 64

	// Axis names are namespaced identifiers such as "eje:temperatura"
	axisPattern = regexp.MustCompile(`^[\p{L}\p{N}_:.\-/]+$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors point at the document
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("axis", func(fl validator.FieldLevel) bool {
		return ValidateAxisName(fl.Field().String()) == nil
	})
}

// Struct validates a struct against its `validate` tags and returns the
// first failure in a user-friendly format.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return FormatValidationError(validate.Struct(v))
}

// ValidateNodeID validates a node identifier
func ValidateNodeID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("node id cannot be empty")
	}
	if len(id) > MaxNodeIDLength {
		return fmt.Errorf("node id '%s' exceeds maximum length of %d characters", id, MaxNodeIDLength)
	}
	return nil
}

// ValidateAxisName validates an axis name
func ValidateAxisName(name string) error {
	if name == "" {
		return errors.New("axis name cannot be empty")
	}
	if len(name) > MaxAxisLength {
		return fmt.Errorf("axis '%s' exceeds maximum length of %d characters", name, MaxAxisLength)
	}
	if !axisPattern.MatchString(name) {
		return fmt.Errorf("axis '%s' contains invalid characters (letters, digits and _:.-/ allowed)", name)
	}
	return nil
}

// FormatValidationError converts validator errors to a more user-friendly format
func FormatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		// Namespace is "Document.nodes[2].id"; drop the root type
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "axis":
			return fmt.Errorf("%s: invalid axis name %q", field, e.Value())
		case "len":
			return fmt.Errorf("%s: must have exactly %s elements", field, param)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}

// Package validate runs struct-tag validation on request payloads and
// reports failures as a field -> message map.
package validate

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var messages = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"min":      "Ensure this value has at least %s characters.",
	"max":      "Ensure this value has at most %s characters.",
	"gte":      "Ensure this value is greater than or equal to %s.",
	"lte":      "Ensure this value is less than or equal to %s.",
	"gt":       "Ensure this value is greater than %s.",
	"oneof":    "Select a valid choice. Must be one of: %s.",
	"eqfield":  "Must match %s.",
	"phone":    "Enter a valid phone number.",
	"uuid":     "Enter a valid id.",
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	val.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return val
}

// FieldErrors maps a JSON field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Struct validates s. It returns nil or a FieldErrors.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(FieldErrors, len(ve))
	for _, fe := range ve {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return "Enter a valid value."
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.Join(strings.Fields(param), ", ")
	}
	return fmt.Sprintf(tmpl, param)
}

// BindAndValidate decodes the request body into dst and validates it.
// Failures are returned as 400 HTTP errors; validation failures carry the
// FieldErrors map as the message.
func BindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := Struct(dst); err != nil {
		return HTTPError(err)
	}
	return nil
}

// HTTPError converts a validation failure into a 400 response.
func HTTPError(err error) *echo.HTTPError {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string(fe))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

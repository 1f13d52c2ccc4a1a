package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateInput checks a decoded request body's struct tags and writes a 400 on failure.
// Returns false when the handler should stop.
func ValidateInput(w http.ResponseWriter, input interface{}) bool {
	err := validate.Struct(input)
	if err == nil {
		return true
	}

	message := "Invalid request body"
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fe.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		case "uuid":
			message = fmt.Sprintf("%s must be a UUID", fe.Field())
		default:
			message = fmt.Sprintf("%s is invalid", fe.Field())
		}
	}
	WriteError(w, http.StatusBadRequest, "INVALID_INPUT", message)
	return false
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/go-playground/validator/v10"
)

// maxJSONBody caps every JSON request body.
const maxJSONBody = 64 << 10

var clientIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// validate is shared by all handlers.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("client_id", func(fl validator.FieldLevel) bool {
		return clientIDPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it. On failure the
// response has been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("invalid JSON body").WriteError(w)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := authsdk.ValidationErrorResponse{Code: "validation_error", Message: "request validation failed"}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		resp.Details = make(map[string]string, len(ve))
		for _, fe := range ve {
			resp.Details[fe.Field()] = formatValidationError(fe)
		}
	}
	httpx.WriteJSON(w, http.StatusBadRequest, resp)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must have a minimum of %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "url":
		return "must be an absolute URL"
	case "client_id":
		return "lowercase letters, digits, dot, dash and underscore only"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kevin07696/clientledger/internal/domain"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BadRequestError marks a request that could not be parsed at all
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

// DecodeJSON parses the body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func DecodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return &BadRequestError{Message: fmt.Sprintf("invalid request body: %v", err)}
		}
	}
	return Validate(dst)
}

// Validate runs struct validation and converts failures into a
// VALIDATION_FAILED domain error keyed by JSON field name
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.WrapError(domain.ErrorCodeValidationFailed, "invalid request", err)
	}

	out := domain.NewDomainError(domain.ErrorCodeValidationFailed, "validation failed")
	for _, fe := range ve {
		out = out.WithDetail(fe.Field(), fe.Tag())
	}
	return out
}

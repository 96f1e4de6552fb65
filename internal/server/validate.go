package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ziadkadry99/docsense/internal/llm"
)

func newValidator(providerType string) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("supported_model", func(fl validator.FieldLevel) bool {
		return llm.IsSupportedModel(providerType, fl.Field().String())
	})
	return v
}

// validationDetail flattens validator errors into one message.
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		// Drop the struct name: "chatRequest.history[0].role" -> "history[0].role".
		_, field, _ := strings.Cut(e.Namespace(), ".")
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", field, e.Tag()))
	}
	return strings.Join(parts, "; ")
}

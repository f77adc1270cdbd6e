// Package validate checks struct tags with go-playground/validator and
// reports failures as invalid-input errors.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/koustreak/modelerd/internal/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its `validate` tags. Every failing field is
// listed in the returned error.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrKindInvalidInput, "validation failed", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errs.Wrap(errs.ErrKindInvalidInput, strings.Join(msgs, "; "), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed rule '%s' %s, got '%v'", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

package job

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidatePayload applies the struct-tag schema. Failures are terminal.
func ValidatePayload(payload any) error {
	if err := validate.Struct(payload); err != nil {
		return Terminal("job payload failed validation", err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ErrInvalidConfig is the first error in the chain returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the struct tags on Config and joins every violation.
func Validate(cfg Config) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := []error{ErrInvalidConfig}
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("'%s': value '%v' fails '%s'", fe.Field(), fe.Value(), fe.Tag()))
	}
	return errors.Join(errs...)
}

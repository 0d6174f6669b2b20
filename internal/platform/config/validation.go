package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their koanf keys, so an error names the
// same path a user writes in YAML or maps from an APP_ variable.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" {
			return f.Name
		}

		return name
	})
	v.RegisterStructValidation(crossFieldRules, Config{})

	return v
}

// crossFieldRules covers constraints spanning sections.
func crossFieldRules(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}

	// A cycle that cannot finish before the next tick is always skipped.
	if cfg.Sync.Enabled && cfg.Sync.Interval > 0 && cfg.Sync.Interval <= cfg.Client.Timeout {
		sl.ReportError(cfg.Sync.Interval, "interval", "Interval", "gtclient", cfg.Client.Timeout.String())
	}

	if r := cfg.Client.Retry; r.MaxInterval > 0 && r.MaxInterval < r.InitialInterval {
		sl.ReportError(r.MaxInterval, "max_interval", "MaxInterval", "geinitial", r.InitialInterval.String())
	}
}

// Validate checks the whole tree and lists every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		lines = append(lines, describe(fe))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	path := keyPath(fe)

	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", path, strings.ToLower(fe.Param()))
	case "required_unless":
		return fmt.Sprintf("%s is required unless %s", path, strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", path, fe.Param())
	case "url":
		return path + " must be a valid URL"
	case "startswith":
		return fmt.Sprintf("%s must start with %s", path, fe.Param())
	case "gtclient":
		return fmt.Sprintf("%s must be longer than client.timeout (%s)", path, fe.Param())
	case "geinitial":
		return fmt.Sprintf("%s must not be shorter than client.retry.initial_interval (%s)", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", path, fe.Tag())
	}
}

// keyPath turns "Config.services.remote.base_url" into "services.remote.base_url".
// Struct-level errors are reported against the root, so their section is
// restored from the field name.
func keyPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}

	switch fe.Tag() {
	case "gtclient":
		return "sync." + path
	case "geinitial":
		return "client.retry." + path
	}

	return path
}

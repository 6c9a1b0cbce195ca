package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
// Struct tags cover per-field rules; cross-section rules are checked
// explicitly afterwards.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if pathsOverlap(cfg.Tiers.CachePath, cfg.Tiers.MasterPath) {
		return fmt.Errorf("invalid configuration: tier paths must not nest (cache %q, master %q)",
			cfg.Tiers.CachePath, cfg.Tiers.MasterPath)
	}

	return nil
}

// formatFieldError renders one validator error as "field: reason".
func formatFieldError(fe validator.FieldError) string {
	// Strip the root struct name from the namespace: "Config.Logging.Level"
	// reads better as "logging.level".
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	field = strings.ToLower(field)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// pathsOverlap reports whether one path is a prefix directory of the other.
// Nested tier roots would make tier derivation ambiguous.
func pathsOverlap(a, b string) bool {
	a = strings.TrimRight(a, "/")
	b = strings.TrimRight(b, "/")
	if a == "" || b == "" || a == b {
		return a == b && a != ""
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"cloudkit/internal/cloud"
	"cloudkit/pkg/profile"
)

// PasswordEnv overrides spec.provider.password so the secret can stay out of the file.
const PasswordEnv = "CLOUDKIT_REGISTRY_PASSWORD"

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Parse reads and validates a profile YAML file.
func Parse(filePath string) (*profile.Profile, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("profile file not found: %s", filePath)
	}

	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")
	if err := v.BindEnv("spec.provider.password", PasswordEnv); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", PasswordEnv, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("profile file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var p profile.Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile file - malformed YAML: %w", err)
	}

	// Unknown kinds surface as the provider-kind error, not a validation message.
	if kind := p.Spec.Provider.Kind; kind != "" {
		if _, err := cloud.ParseProviderKind(kind); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(&p); err != nil {
		return nil, formatValidationError(err)
	}

	return &p, nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		var b strings.Builder
		b.WriteString("validation errors:\n")
		for _, msg := range errorMessages {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
		return errors.New(b.String())
	}
	return fmt.Errorf("validation failed: %w", err)
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "required_if":
		return fmt.Sprintf("field '%s' is required when %s", field, strings.Replace(e.Param(), " ", " is ", 1))
	case "eq":
		return fmt.Sprintf("field '%s' must be '%s'", field, e.Param())
	case "min":
		return fmt.Sprintf("field '%s' must have at least %s entries", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, e.Tag())
	}
}

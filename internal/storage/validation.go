package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quelld/quell/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRules validates a rule slice before a whole-collection save.
func validateRules(rules []model.Rule) error {
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return fmt.Errorf("rule at index %d: %w", i, err)
		}
	}
	return nil
}

// validateNotification validates a notification before persisting it.
func validateNotification(n *model.Notification) error {
	if n == nil {
		return fmt.Errorf("%w: notification", ErrNilParameter)
	}
	if err := validateString(n.PackageName, "packageName"); err != nil {
		return err
	}
	return nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/lighty-launcher/distserver/internal/distio/pathvalidate"
)

// ValidateProfileName checks that name is non-empty and a safe single path
// component, per the ProfileConfig identity rule.
func ValidateProfileName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if err := pathvalidate.Component(name); err != nil {
		return fmt.Errorf("invalid profile name %q: %w", name, err)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid profile name %q: path separators are not allowed", name)
	}
	return nil
}

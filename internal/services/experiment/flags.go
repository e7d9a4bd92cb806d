package experiment

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Known flag keys. Only these keys exist in the config store; update
// requests touching anything else are dropped.
const (
	FlagExperimentEnabled       = "experimentEnabled"
	FlagShowPromoSection        = "showPromoSection"
	FlagEnableSignupForm        = "enableSignupForm"
	FlagAlternateCtaDestination = "alternateCtaDestination"
)

// DefaultFlags returns the built-in flag defaults used to seed a fresh store.
func DefaultFlags() map[string]bool {
	return map[string]bool{
		FlagExperimentEnabled:       true,
		FlagShowPromoSection:        true,
		FlagEnableSignupForm:        true,
		FlagAlternateCtaDestination: false,
	}
}

// LoadDefaultFlags returns the seed defaults, with entries from an optional
// TOML overrides file applied on top. Only known flag keys may be
// overridden; an unknown key in the file is a configuration error. An empty
// path returns the built-in defaults.
func LoadDefaultFlags(path string) (map[string]bool, error) {
	defaults := DefaultFlags()
	path = strings.TrimSpace(path)
	if path == "" {
		return defaults, nil
	}

	var overrides map[string]bool
	if _, err := toml.DecodeFile(path, &overrides); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("flags file %s does not exist", path)
		}
		return nil, fmt.Errorf("decode flags file %s: %w", path, err)
	}
	for key, value := range overrides {
		if _, known := defaults[key]; !known {
			return nil, fmt.Errorf("flags file %s: unknown flag %q", path, key)
		}
		defaults[key] = value
	}
	return defaults, nil
}

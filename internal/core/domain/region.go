package domain

import (
	"fmt"
	"strings"
)

// Vivenu API base URLs.
const (
	BaseURLProd = "https://vivenu.com/api"
	BaseURLDev  = "https://vivenu.dev/api"
)

// Region is a configured unit of work: one API key and, usually, one event.
type Region struct {
	// Name is the upper-cased region code, e.g. FRANKFURT.
	Name string

	// APIKey is the bearer token for the region's Vivenu seller.
	APIKey string

	// EventID is the event configured for the region, if any.
	EventID string
}

// NormaliseRegion upper-cases and trims a region code.
func NormaliseRegion(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsDevRegion reports whether the region talks to the Vivenu sandbox.
func IsDevRegion(name string) bool {
	switch NormaliseRegion(name) {
	case "DEV", "TEST":
		return true
	default:
		return false
	}
}

// BaseURL returns the API base URL for the region.
func (r Region) BaseURL() string {
	if IsDevRegion(r.Name) {
		return BaseURLDev
	}
	return BaseURLProd
}

// Validate checks the region has what a network call needs.
func (r Region) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.APIKey) == "" {
		return fmt.Errorf("%w: set %s_API", ErrMissingCredential, r.Name)
	}
	return nil
}

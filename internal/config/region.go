package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

// ResolveRegion returns the credentials and event for region. An explicit
// eventID wins over <REGION>_EVENT. Both checks happen before any network
// call: a missing key or event id is a configuration failure.
func ResolveRegion(v *viper.Viper, region, eventID string) (domain.Region, error) {
	name := domain.NormaliseRegion(region)
	if name == "" {
		return domain.Region{}, fmt.Errorf("%w: region is required", domain.ErrInvalidInput)
	}
	apiKey, event := regionKeys(name)
	_ = v.BindEnv(apiKey, name+"_API")
	_ = v.BindEnv(event, name+"_EVENT")

	r := domain.Region{
		Name:    name,
		APIKey:  strings.TrimSpace(v.GetString(apiKey)),
		EventID: strings.TrimSpace(eventID),
	}
	if r.EventID == "" {
		r.EventID = usable(v.GetString(event))
	}

	if err := r.Validate(); err != nil {
		return r, err
	}
	if r.EventID == "" {
		configured := ConfiguredRegions(v, os.Environ())
		list := "none"
		if len(configured) > 0 {
			list = strings.Join(configured, ", ")
		}
		return r, fmt.Errorf("%w for %s: pass an event id or set %s_EVENT (configured regions: %s)",
			domain.ErrMissingScope, name, name, list)
	}
	return r, nil
}

// ConfiguredRegions lists regions with an event id set, from environ
// (<REGION>_EVENT) and from the config file (regions.<region>.event).
func ConfiguredRegions(v *viper.Viper, environ []string) []string {
	var out []string
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasSuffix(key, "_EVENT") || usable(val) == "" {
			continue
		}
		if name := strings.TrimSuffix(key, "_EVENT"); name != "" && name != envPrefix {
			out = append(out, domain.NormaliseRegion(name))
		}
	}
	for _, key := range v.AllKeys() {
		parts := strings.Split(key, ".")
		if len(parts) == 3 && parts[0] == "regions" && parts[2] == "event" && usable(v.GetString(key)) != "" {
			out = append(out, domain.NormaliseRegion(parts[1]))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func regionKeys(name string) (apiKey, event string) {
	prefix := "regions." + strings.ToLower(name) + "."
	return prefix + "api", prefix + "event"
}

// usable trims val and drops template placeholders.
func usable(val string) string {
	val = strings.TrimSpace(val)
	if strings.HasPrefix(strings.ToLower(val), placeholderPrefix) {
		return ""
	}
	return val
}

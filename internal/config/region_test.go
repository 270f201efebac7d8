package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

func TestResolveRegion_FromEnv(t *testing.T) {
	t.Setenv("FRANKFURT_API", "key-fra")
	t.Setenv("FRANKFURT_EVENT", "evt-fra")

	r, err := ResolveRegion(New(nil), "frankfurt", "")
	require.NoError(t, err)

	assert.Equal(t, "FRANKFURT", r.Name)
	assert.Equal(t, "key-fra", r.APIKey)
	assert.Equal(t, "evt-fra", r.EventID)
	assert.Equal(t, domain.BaseURLProd, r.BaseURL())
}

func TestResolveRegion_ExplicitEventWins(t *testing.T) {
	t.Setenv("FRANKFURT_API", "key-fra")
	t.Setenv("FRANKFURT_EVENT", "evt-fra")

	r, err := ResolveRegion(New(nil), "FRANKFURT", "evt-explicit")
	require.NoError(t, err)
	assert.Equal(t, "evt-explicit", r.EventID)
}

func TestResolveRegion_MissingAPIKey(t *testing.T) {
	t.Setenv("NOWHERE_EVENT", "evt-1")

	_, err := ResolveRegion(New(nil), "nowhere", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Contains(t, err.Error(), "NOWHERE_API")
}

func TestResolveRegion_PlaceholderEventIsUnset(t *testing.T) {
	t.Setenv("DEV_API", "key-dev")
	t.Setenv("DEV_EVENT", "your_event_id_here")
	t.Setenv("LISBON_EVENT", "evt-lis")

	r, err := ResolveRegion(New(nil), "dev", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingScope)
	assert.Contains(t, err.Error(), "DEV_EVENT")
	assert.Contains(t, err.Error(), "LISBON")
	assert.Equal(t, domain.BaseURLDev, r.BaseURL())
}

func TestResolveRegion_FromConfigFile(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("regions.madrid.api", "key-mad"))
	require.NoError(t, store.Set("regions.madrid.event", "evt-mad"))

	r, err := ResolveRegion(New(store), "Madrid", "")
	require.NoError(t, err)
	assert.Equal(t, "key-mad", r.APIKey)
	assert.Equal(t, "evt-mad", r.EventID)
}

func TestResolveRegion_EmptyName(t *testing.T) {
	_, err := ResolveRegion(New(nil), "  ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfiguredRegions(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("regions.madrid.event", "evt-mad"))
	require.NoError(t, store.Set("regions.oslo.event", "your_event"))

	environ := []string{
		"FRANKFURT_EVENT=evt-fra",
		"LONDON_EVENT=your_event_id",
		"VIVENU_EVENT=ignored",
		"PATH=/usr/bin",
		"MADRID_EVENT=evt-mad",
		"EMPTY_EVENT=",
	}

	assert.Equal(t, []string{"FRANKFURT", "MADRID"}, ConfiguredRegions(New(store), environ))
}

// Package app wires settings into the services behind the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/vivenu"
	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/webhook"
	"github.com/custodia-labs/vivenu-sync/internal/config"
	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/core/services"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// Factory builds services from one resolved configuration.
type Factory struct {
	settings *config.Settings
	viper    *viper.Viper

	// HTTPClient, when set, carries every outbound request. Used by tests.
	HTTPClient *http.Client

	store   driven.ProgressStore
	closers []func() error
}

// NewFactory creates a factory over v.
func NewFactory(v *viper.Viper) (*Factory, error) {
	s, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return &Factory{settings: s, viper: v}, nil
}

// Settings returns the resolved settings.
func (f *Factory) Settings() *config.Settings { return f.settings }

// Region resolves credentials and event for region.
func (f *Factory) Region(region, eventID string) (domain.Region, error) {
	return config.ResolveRegion(f.viper, region, eventID)
}

// ProgressStore returns the configured progress store, opening it once.
func (f *Factory) ProgressStore() (driven.ProgressStore, error) {
	if f.store != nil {
		return f.store, nil
	}
	switch f.settings.Store {
	case config.StoreSQLite:
		db, err := sqlite.NewStore(f.settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite progress store: %w", err)
		}
		logger.Debug("Progress store: %s", db.Path())
		f.closers = append(f.closers, db.Close)
		f.store = db.ProgressStore()
	case config.StoreMemory:
		f.store = memory.NewProgressStore()
	default:
		fs, err := file.NewProgressStore(f.settings.ProgressDir)
		if err != nil {
			return nil, err
		}
		f.store = fs
	}
	return f.store, nil
}

// Source creates a Vivenu client for region.
func (f *Factory) Source(ctx context.Context, region domain.Region) (*vivenu.Client, error) {
	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	return vivenu.NewRegionClient(ctx, region,
		vivenu.WithRateLimiter(vivenu.NewRateLimiter(f.settings.RequestsPerMinute)))
}

// Fetcher creates the page-by-page fetcher used for syncing.
func (f *Factory) Fetcher(source driven.TicketSource) *services.PagedFetcher {
	return services.NewPagedFetcher(source, f.fetchConfig(f.settings.PageSize))
}

// BulkFetcher creates the fetcher used for full scrapes.
func (f *Factory) BulkFetcher(source driven.TicketSource) *services.PagedFetcher {
	return services.NewPagedFetcher(source, f.fetchConfig(f.settings.BulkPageSize))
}

func (f *Factory) fetchConfig(pageSize int) services.FetchConfig {
	s := f.settings
	return services.FetchConfig{
		PageSize:    pageSize,
		MinPageSize: s.MinPageSize,
		MaxAttempts: s.MaxAttempts,
		Backoff: services.Backoff{
			Base:   s.BackoffBase,
			Max:    s.BackoffMax,
			Jitter: s.BackoffJitter,
		},
		PageDelay:             s.PageDelay,
		CompletenessThreshold: s.CompletenessThreshold,
	}
}

// Filter creates the eligibility pipeline.
func (f *Factory) Filter() *services.FilterPipeline {
	return services.NewFilterPipeline(
		services.StatusIn(services.DefaultEligibleStatuses...),
		services.TypeNameContains(f.settings.CategoryMarker),
	)
}

// Teams creates the team grouper.
func (f *Factory) Teams() *services.TeamGrouper {
	return services.NewTeamGrouper(f.settings.TeamIndicators...)
}

// Emitter creates the webhook emitter. With live unset and no webhook URL
// configured, the emitter has no transport and must not send.
func (f *Factory) Emitter(mode string, live bool) (*services.WebhookEmitter, error) {
	if mode == "" {
		mode = f.settings.Mode
	}
	if !domain.ValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}

	var transport driven.WebhookTransport
	if err := f.settings.RequireWebhookURL(); err != nil {
		if live {
			return nil, err
		}
	} else {
		t, err := webhook.NewTransport(f.settings.WebhookURL, f.HTTPClient)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	if live && f.settings.Secret == "" {
		logger.Warn("VIVENU_SECRET is not set: every send will fail")
	}
	return services.NewWebhookEmitter(transport, f.settings.Secret, mode), nil
}

// Validator creates the pre-sync ticket count validator.
func (f *Factory) Validator(source driven.TicketSource) *services.ValidationService {
	return services.NewValidationService(source, f.BulkFetcher(source), f.Filter())
}

// Sync wires a sync service for region. live requires a webhook URL.
func (f *Factory) Sync(ctx context.Context, region domain.Region, live bool) (*services.SyncService, error) {
	source, err := f.Source(ctx, region)
	if err != nil {
		return nil, err
	}
	store, err := f.ProgressStore()
	if err != nil {
		return nil, err
	}
	emitter, err := f.Emitter("", live)
	if err != nil {
		return nil, err
	}

	return services.NewSyncService(
		source,
		store,
		f.Fetcher(source),
		f.Filter(),
		f.Teams(),
		emitter,
		f.Validator(source),
		services.SyncConfig{
			BatchSize:             f.settings.BatchSize,
			SendInterval:          f.settings.SendInterval,
			CompletenessThreshold: f.settings.CompletenessThreshold,
		},
	), nil
}

// TestSender wires a sync service that only sends single tickets from a
// dump. It has no ticket source or progress store.
func (f *Factory) TestSender(mode string) (*services.SyncService, error) {
	emitter, err := f.Emitter(mode, true)
	if err != nil {
		return nil, err
	}
	return services.NewSyncService(nil, nil, nil, f.Filter(), f.Teams(), emitter, nil,
		services.SyncConfig{SendInterval: f.settings.SendInterval}), nil
}

// Close releases opened stores.
func (f *Factory) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}
	f.closers = nil
	f.store = nil
	return errors.Join(errs...)
}

package cli

import (
	"context"

	"github.com/custodia-labs/vivenu-sync/internal/app"
	"github.com/custodia-labs/vivenu-sync/internal/config"
	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

// backend is what the commands need from the composition root.
type backend interface {
	Settings() *config.Settings
	Region(name, eventID string) (domain.Region, error)
	HistoricalSync(ctx context.Context, region domain.Region, live bool) (driving.HistoricalSync, error)
	Downloader(ctx context.Context, region domain.Region) (driving.TicketDownloader, error)
	Validator(ctx context.Context, region domain.Region) (driving.TicketValidator, error)
	TestSender(mode string) (driving.HistoricalSync, error)
	ProgressStore() (driven.ProgressStore, error)
	Close() error
}

// factoryBackend adapts app.Factory to backend.
type factoryBackend struct {
	*app.Factory
}

func defaultBackend() (backend, error) {
	store, err := openConfigStore()
	if err != nil {
		return nil, err
	}
	v := config.New(store)
	if storeFlag != "" {
		v.Set(config.KeyStore, storeFlag)
	}
	f, err := app.NewFactory(v)
	if err != nil {
		return nil, err
	}
	return factoryBackend{Factory: f}, nil
}

func (b factoryBackend) HistoricalSync(ctx context.Context, region domain.Region, live bool) (driving.HistoricalSync, error) {
	svc, err := b.Sync(ctx, region, live)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (b factoryBackend) Downloader(ctx context.Context, region domain.Region) (driving.TicketDownloader, error) {
	source, err := b.Source(ctx, region)
	if err != nil {
		return nil, err
	}
	return b.BulkFetcher(source), nil
}

func (b factoryBackend) Validator(ctx context.Context, region domain.Region) (driving.TicketValidator, error) {
	source, err := b.Source(ctx, region)
	if err != nil {
		return nil, err
	}
	return b.Factory.Validator(source), nil
}

func (b factoryBackend) TestSender(mode string) (driving.HistoricalSync, error) {
	svc, err := b.Factory.TestSender(mode)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

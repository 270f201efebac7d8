package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/webhook"
	"github.com/custodia-labs/vivenu-sync/internal/config"
	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

// redirect sends every request to target, keeping path and query.
type redirect struct{ target *url.URL }

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestFactory(t *testing.T, values map[string]any) *Factory {
	t.Helper()
	store := memory.NewConfigStore()
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}
	f, err := NewFactory(config.New(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// fakeVivenu serves /api/tickets for one event and records webhook posts.
type fakeVivenu struct {
	mu         sync.Mutex
	tickets    []string
	posts      int
	signatures []string
}

func (v *fakeVivenu) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tickets", func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		top, _ := strconv.Atoi(r.URL.Query().Get("top"))
		end := min(skip+top, len(v.tickets))
		rows := "[]"
		if skip < end {
			rows = "["
			for i, tk := range v.tickets[skip:end] {
				if i > 0 {
					rows += ","
				}
				rows += tk
			}
			rows += "]"
		}
		fmt.Fprintf(w, `{"rows":%s,"total":%d}`, rows, len(v.tickets))
	})
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		v.mu.Lock()
		v.posts++
		v.signatures = append(v.signatures, r.Header.Get(webhook.SignatureHeader))
		v.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func ticket(id string, second int) string {
	return fmt.Sprintf(`{"_id":%q,"ticketName":"CHARITY 10K","status":"VALID","sellerId":"seller-1","createdAt":"2024-03-01T09:00:%02d.000Z"}`, id, second)
}

func TestNewFactory_InvalidSettings(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(config.KeyStore, "redis"))

	_, err := NewFactory(config.New(store))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFactory_ProgressStore(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		f := newTestFactory(t, map[string]any{config.KeyProgressDir: t.TempDir()})
		s, err := f.ProgressStore()
		require.NoError(t, err)
		assert.IsType(t, &file.ProgressStore{}, s)

		again, err := f.ProgressStore()
		require.NoError(t, err)
		assert.Same(t, s, again)
	})

	t.Run("memory", func(t *testing.T) {
		f := newTestFactory(t, map[string]any{config.KeyStore: config.StoreMemory})
		s, err := f.ProgressStore()
		require.NoError(t, err)
		assert.IsType(t, &memory.ProgressStore{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		f := newTestFactory(t, map[string]any{
			config.KeyStore:   config.StoreSQLite,
			config.KeyDataDir: t.TempDir(),
		})
		s, err := f.ProgressStore()
		require.NoError(t, err)

		ctx := context.Background()
		p := domain.NewSyncProgress()
		p.MarkSent("evt-1", "t-1")
		require.NoError(t, s.Save(ctx, "lisbon", p))

		loaded, err := s.Load(ctx, "LISBON")
		require.NoError(t, err)
		assert.True(t, loaded.IsSent("evt-1", "t-1"))
		assert.NoError(t, f.Close())
	})
}

func TestFactory_Emitter(t *testing.T) {
	f := newTestFactory(t, nil)

	_, err := f.Emitter("", true)
	assert.ErrorIs(t, err, domain.ErrMissingWebhookURL)

	e, err := f.Emitter("", false)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeProd, e.Mode())

	_, err = f.Emitter("staging", false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFactory_FetchConfigFromSettings(t *testing.T) {
	f := newTestFactory(t, map[string]any{
		config.KeyPageSize:     int64(40),
		config.KeyBulkPageSize: int64(400),
		config.KeyMinPageSize:  int64(5),
		config.KeyMaxAttempts:  int64(4),
	})

	cfg := f.Fetcher(nil).Config()
	assert.Equal(t, 40, cfg.PageSize)
	assert.Equal(t, 5, cfg.MinPageSize)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 400, f.BulkFetcher(nil).Config().PageSize)
}

func TestFactory_SyncEndToEnd(t *testing.T) {
	fake := &fakeVivenu{tickets: []string{ticket("t-1", 0), ticket("t-2", 1), ticket("t-3", 2)}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	t.Setenv("LISBON_API", "key-lis")
	f := newTestFactory(t, map[string]any{
		config.KeyStore:             config.StoreMemory,
		config.KeyWebhookURL:        "http://hooks.invalid/ingest",
		config.KeySecret:            "s3cret",
		config.KeySendInterval:      "0s",
		config.KeyPageDelay:         "0s",
		config.KeyRequestsPerMinute: int64(0),
	})
	f.HTTPClient = &http.Client{Transport: redirect{target: target}}

	ctx := context.Background()
	region, err := f.Region("lisbon", "evt-1")
	require.NoError(t, err)

	svc, err := f.Sync(ctx, region, true)
	require.NoError(t, err)

	report, err := svc.Sync(ctx, driving.SyncRequest{
		Region:         region.Name,
		EventID:        region.EventID,
		SkipValidation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sent)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, domain.ScopeCompleted, report.Status)

	fake.mu.Lock()
	assert.Equal(t, 3, fake.posts)
	for _, sig := range fake.signatures {
		assert.Len(t, sig, 64)
	}
	fake.mu.Unlock()

	store, err := f.ProgressStore()
	require.NoError(t, err)
	p, err := store.Load(ctx, "LISBON")
	require.NoError(t, err)
	assert.Equal(t, 3, p.TicketsSent)
}

func TestFactory_TestSenderRequiresWebhook(t *testing.T) {
	f := newTestFactory(t, nil)
	_, err := f.TestSender(domain.ModeTest)
	assert.ErrorIs(t, err, domain.ErrMissingWebhookURL)
}

// Package config layers vivenu-sync settings: built-in defaults, then the
// TOML config file, then VIVENU_* environment variables, then command flags.
// Region credentials come from <REGION>_API and <REGION>_EVENT.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
)

// envPrefix is the environment variable prefix for settings.
const envPrefix = "VIVENU"

// Setting keys.
const (
	KeyWebhookURL            = "webhook_url"
	KeySecret                = "secret"
	KeyMode                  = "mode"
	KeyStore                 = "store"
	KeyProgressDir           = "progress_dir"
	KeyDataDir               = "data_dir"
	KeyOutputDir             = "output_dir"
	KeyBatchSize             = "batch_size"
	KeyPageSize              = "page_size"
	KeyBulkPageSize          = "bulk_page_size"
	KeyMinPageSize           = "min_page_size"
	KeyMaxAttempts           = "max_attempts"
	KeyBackoffBase           = "backoff_base"
	KeyBackoffMax            = "backoff_max"
	KeyBackoffJitter         = "backoff_jitter"
	KeyPageDelay             = "page_delay"
	KeySendInterval          = "send_interval"
	KeyCompletenessThreshold = "completeness_threshold"
	KeyRequestsPerMinute     = "requests_per_minute"
	KeyCategoryMarker        = "category_marker"
	KeyTeamIndicators        = "team_indicators"
)

// Keys lists every setting key, sorted.
func Keys() []string {
	keys := []string{
		KeyWebhookURL, KeySecret, KeyMode, KeyStore, KeyProgressDir, KeyDataDir,
		KeyOutputDir, KeyBatchSize, KeyPageSize, KeyBulkPageSize, KeyMinPageSize,
		KeyMaxAttempts, KeyBackoffBase, KeyBackoffMax, KeyBackoffJitter, KeyPageDelay,
		KeySendInterval, KeyCompletenessThreshold, KeyRequestsPerMinute,
		KeyCategoryMarker, KeyTeamIndicators,
	}
	slices.Sort(keys)
	return keys
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Progress store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// placeholderPrefix marks template values such as "your_event_id".
const placeholderPrefix = "your_"

// Settings is the resolved configuration.
type Settings struct {
	WebhookURL string
	Secret     string
	Mode       string

	Store       string
	ProgressDir string
	DataDir     string
	OutputDir   string

	BatchSize             int
	PageSize              int
	BulkPageSize          int
	MinPageSize           int
	MaxAttempts           int
	BackoffBase           time.Duration
	BackoffMax            time.Duration
	BackoffJitter         float64
	PageDelay             time.Duration
	SendInterval          time.Duration
	CompletenessThreshold float64
	RequestsPerMinute     int

	CategoryMarker string
	TeamIndicators []string
}

// New builds a viper instance over the defaults, the stored settings and
// the environment.
func New(store driven.ConfigStore) *viper.Viper {
	v := viper.New()
	applyDefaults(v)

	if store != nil {
		for key, val := range store.All() {
			v.SetDefault(key, val)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault(KeyMode, domain.ModeProd)
	v.SetDefault(KeyStore, StoreFile)
	v.SetDefault(KeyProgressDir, ".")
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyOutputDir, "purchased_tickets")

	v.SetDefault(KeyBatchSize, 50)
	v.SetDefault(KeyPageSize, 100)
	v.SetDefault(KeyBulkPageSize, 1000)
	v.SetDefault(KeyMinPageSize, 10)
	v.SetDefault(KeyMaxAttempts, 3)
	v.SetDefault(KeyBackoffBase, time.Second)
	v.SetDefault(KeyBackoffMax, 30*time.Second)
	v.SetDefault(KeyBackoffJitter, 0.2)
	v.SetDefault(KeyPageDelay, 200*time.Millisecond)
	v.SetDefault(KeySendInterval, 1800*time.Millisecond)
	v.SetDefault(KeyCompletenessThreshold, 0.95)
	v.SetDefault(KeyRequestsPerMinute, 100)

	v.SetDefault(KeyCategoryMarker, "CHARITY")
	v.SetDefault(KeyTeamIndicators, []string{"DOUBLES", "RELAY", "ATHLETE 2", "TEAM MEMBER"})
}

// Load reads and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		WebhookURL: strings.TrimSpace(v.GetString(KeyWebhookURL)),
		Secret:     v.GetString(KeySecret),
		Mode:       strings.ToLower(strings.TrimSpace(v.GetString(KeyMode))),

		Store:       strings.ToLower(strings.TrimSpace(v.GetString(KeyStore))),
		ProgressDir: v.GetString(KeyProgressDir),
		DataDir:     v.GetString(KeyDataDir),
		OutputDir:   v.GetString(KeyOutputDir),

		BatchSize:             v.GetInt(KeyBatchSize),
		PageSize:              v.GetInt(KeyPageSize),
		BulkPageSize:          v.GetInt(KeyBulkPageSize),
		MinPageSize:           v.GetInt(KeyMinPageSize),
		MaxAttempts:           v.GetInt(KeyMaxAttempts),
		BackoffBase:           v.GetDuration(KeyBackoffBase),
		BackoffMax:            v.GetDuration(KeyBackoffMax),
		BackoffJitter:         v.GetFloat64(KeyBackoffJitter),
		PageDelay:             v.GetDuration(KeyPageDelay),
		SendInterval:          v.GetDuration(KeySendInterval),
		CompletenessThreshold: v.GetFloat64(KeyCompletenessThreshold),
		RequestsPerMinute:     v.GetInt(KeyRequestsPerMinute),

		CategoryMarker: v.GetString(KeyCategoryMarker),
		TeamIndicators: v.GetStringSlice(KeyTeamIndicators),
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return s, nil
}

// Validate checks value ranges. Webhook URL and secret are checked where
// they are needed.
func (s *Settings) Validate() error {
	var problems []string
	if !domain.ValidMode(s.Mode) {
		problems = append(problems, fmt.Sprintf("%s must be prod, dev or test, got %q", KeyMode, s.Mode))
	}
	if !slices.Contains([]string{StoreFile, StoreSQLite, StoreMemory}, s.Store) {
		problems = append(problems, fmt.Sprintf("%s must be file, sqlite or memory, got %q", KeyStore, s.Store))
	}
	for key, n := range map[string]int{
		KeyBatchSize:    s.BatchSize,
		KeyPageSize:     s.PageSize,
		KeyBulkPageSize: s.BulkPageSize,
		KeyMinPageSize:  s.MinPageSize,
		KeyMaxAttempts:  s.MaxAttempts,
	} {
		if n <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", key, n))
		}
	}
	if s.MinPageSize > s.PageSize {
		problems = append(problems, fmt.Sprintf("%s must not exceed %s", KeyMinPageSize, KeyPageSize))
	}
	if s.BackoffJitter < 0 || s.BackoffJitter >= 1 {
		problems = append(problems, fmt.Sprintf("%s must be in [0,1), got %g", KeyBackoffJitter, s.BackoffJitter))
	}
	if s.CompletenessThreshold <= 0 || s.CompletenessThreshold > 1 {
		problems = append(problems, fmt.Sprintf("%s must be in (0,1], got %g", KeyCompletenessThreshold, s.CompletenessThreshold))
	}
	if s.BackoffBase < 0 || s.BackoffMax < 0 || s.PageDelay < 0 || s.SendInterval < 0 {
		problems = append(problems, "durations must not be negative")
	}
	if strings.TrimSpace(s.CategoryMarker) == "" {
		problems = append(problems, KeyCategoryMarker+" must not be empty")
	}
	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
}

// RequireWebhookURL checks a send target is configured. A missing secret is
// not checked here: it fails each send and is recorded in the progress.
func (s *Settings) RequireWebhookURL() error {
	if s.WebhookURL == "" {
		return fmt.Errorf("%w: set %s_WEBHOOK_URL or %s", domain.ErrMissingWebhookURL, envPrefix, KeyWebhookURL)
	}
	return nil
}

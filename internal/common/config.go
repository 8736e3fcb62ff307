package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, loaded from prospect.toml and
// overridden by command-line flags.
type Config struct {
	Search    SearchConfig    `toml:"search"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Stealth   StealthConfig   `toml:"stealth"`
	Scraper   ScraperConfig   `toml:"scraper"`
	Browser   BrowserConfig   `toml:"browser"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Filter    FilterConfig    `toml:"filter"`
	Export    ExportConfig    `toml:"export"`
	Cache     CacheConfig     `toml:"cache"`
	Logging   LoggingConfig   `toml:"logging"`
	Schedule  ScheduleConfig  `toml:"schedule"`
}

// SearchConfig holds the search parameters
type SearchConfig struct {
	Branche      string `toml:"branche"`
	Stadt        string `toml:"stadt"`
	MaxLeads     int    `toml:"max_leads" validate:"min=1"`
	MaxPages     int    `toml:"max_pages" validate:"min=1"`
	Sources      string `toml:"sources" validate:"oneof=directory map all"`
	CheckDepth   string `toml:"check_depth" validate:"oneof=fast normal thorough"`
	AllBranchen  bool   `toml:"all_branchen"`
	Kategorie    string `toml:"kategorie"`
	BranchenFile string `toml:"branchen_file"`
}

// RateLimitConfig paces outbound requests per host class
type RateLimitConfig struct {
	DirectoryMinDelay time.Duration `toml:"directory_min_delay"`
	DirectoryMaxDelay time.Duration `toml:"directory_max_delay"`
	MapMinDelay       time.Duration `toml:"map_min_delay"`
	MapMaxDelay       time.Duration `toml:"map_max_delay"`
	ExternalMinDelay  time.Duration `toml:"external_min_delay"`
	ExternalMaxDelay  time.Duration `toml:"external_max_delay"`
	PauseEveryN       int           `toml:"pause_every_n"`
	PauseMinDuration  time.Duration `toml:"pause_min_duration"`
	PauseMaxDuration  time.Duration `toml:"pause_max_duration"`
	MaxRetries        int           `toml:"max_retries"`
	BackoffFactor     float64       `toml:"backoff_factor"`
	RetryStatusCodes  []int         `toml:"retry_status_codes"`
}

// StealthConfig is the conservative pacing profile for long sessions
type StealthConfig struct {
	Enabled          bool          `toml:"enabled"`
	MinDelay         time.Duration `toml:"min_delay"`
	MaxDelay         time.Duration `toml:"max_delay"`
	BreakEveryN      int           `toml:"break_every_n"`
	BreakMinDuration time.Duration `toml:"break_min_duration"`
	BreakMaxDuration time.Duration `toml:"break_max_duration"`
	HourlyLimit      int           `toml:"hourly_limit"`
	SessionMinutes   int           `toml:"session_minutes"`
}

// ScraperConfig holds directory endpoints and HTTP client tuning
type ScraperConfig struct {
	DirectoryBaseURL   string        `toml:"directory_base_url"`
	DirectorySearchURL string        `toml:"directory_search_url"`
	ResultsPerPage     int           `toml:"results_per_page"`
	RequestTimeout     time.Duration `toml:"request_timeout"`
	ConnectTimeout     time.Duration `toml:"connect_timeout"`
	RotateUAEveryN     int           `toml:"rotate_ua_every_n"`
}

// BrowserConfig tunes the chromedp-backed map scraper
type BrowserConfig struct {
	Headless          bool          `toml:"headless"`
	NavigationTimeout time.Duration `toml:"navigation_timeout"`
	MaxScrollAttempts int           `toml:"max_scroll_attempts"`
	ScrollPause       time.Duration `toml:"scroll_pause"`
	RotateEveryN      int           `toml:"rotate_every_n"`
}

// ProxyConfig enables optional outbound identity rotation
type ProxyConfig struct {
	Enabled      bool   `toml:"enabled"`
	File         string `toml:"file"`
	RotateEveryN int    `toml:"rotate_every_n"`
	MaxFailures  int    `toml:"max_failures"`
}

// FilterConfig holds lead inclusion policy
type FilterConfig struct {
	IncludeNoWebsite      bool     `toml:"include_no_website"`
	IncludeOldWebsite     bool     `toml:"include_old_website"`
	IncludeModernWebsite  bool     `toml:"include_modern_website"`
	IncludeUnknownWebsite bool     `toml:"include_unknown_website"`
	MinQualityScore       int      `toml:"min_quality_score" validate:"min=0,max=100"`
	RequirePhone          bool     `toml:"require_phone"`
	RequireEmail          bool     `toml:"require_email"`
	RequireAddress        bool     `toml:"require_address"`
	PLZPrefixes           []string `toml:"plz_prefixes"`
	BlacklistNames        []string `toml:"blacklist_names"`
	WhitelistCategories   []string `toml:"whitelist_categories"`
}

// ExportConfig controls output shape
type ExportConfig struct {
	Format      string `toml:"format" validate:"oneof=json csv both pdf"`
	Output      string `toml:"output"`
	CSVColumns  string `toml:"csv_columns" validate:"oneof=minimal default full"`
	PrettyPrint bool   `toml:"pretty_print"`
	IncludeMeta bool   `toml:"include_meta"`
	PromptOut   string `toml:"prompt_out"`
}

// CacheConfig enables the cross-run website-verdict cache
type CacheConfig struct {
	Enabled bool          `toml:"enabled"`
	Path    string        `toml:"path"`
	TTL     time.Duration `toml:"ttl"`
}

// LoggingConfig mirrors the arbor writer setup
type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output"`
}

// ScheduleConfig runs the pipeline on a cron spec until interrupted
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Spec    string `toml:"spec"`
}

// NewDefaultConfig creates a configuration with default values. The delay
// and backoff constants follow the directory's tolerance observed in
// long-running sessions; only user-facing settings belong in prospect.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			MaxLeads:   100,
			MaxPages:   50,
			Sources:    "directory",
			CheckDepth: "normal",
		},
		RateLimit: RateLimitConfig{
			DirectoryMinDelay: 2 * time.Second,
			DirectoryMaxDelay: 4 * time.Second,
			MapMinDelay:       3 * time.Second,
			MapMaxDelay:       6 * time.Second,
			ExternalMinDelay:  1 * time.Second,
			ExternalMaxDelay:  2 * time.Second,
			PauseEveryN:       20,
			PauseMinDuration:  15 * time.Second,
			PauseMaxDuration:  30 * time.Second,
			MaxRetries:        3,
			BackoffFactor:     2.0,
			RetryStatusCodes:  []int{429, 500, 502, 503, 504},
		},
		Stealth: StealthConfig{
			MinDelay:         30 * time.Second,
			MaxDelay:         90 * time.Second,
			BreakEveryN:      12,
			BreakMinDuration: 3 * time.Minute,
			BreakMaxDuration: 8 * time.Minute,
			HourlyLimit:      50,
			SessionMinutes:   180,
		},
		Scraper: ScraperConfig{
			DirectoryBaseURL:   "https://www.gelbeseiten.de",
			DirectorySearchURL: "https://www.gelbeseiten.de/suche",
			ResultsPerPage:     25,
			RequestTimeout:     30 * time.Second,
			ConnectTimeout:     10 * time.Second,
			RotateUAEveryN:     10,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			MaxScrollAttempts: 30,
			ScrollPause:       500 * time.Millisecond,
			RotateEveryN:      10,
		},
		Proxy: ProxyConfig{
			RotateEveryN: 10,
			MaxFailures:  5,
		},
		Filter: FilterConfig{
			IncludeNoWebsite:      true,
			IncludeOldWebsite:     true,
			IncludeModernWebsite:  false,
			IncludeUnknownWebsite: true,
		},
		Export: ExportConfig{
			Format:      "json",
			CSVColumns:  "default",
			PrettyPrint: true,
			IncludeMeta: true,
		},
		Cache: CacheConfig{
			Path: "./data/verdicts",
			TTL:  30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads the default config and applies each TOML file in
// order, later files overriding earlier ones
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Proxy.Enabled && c.Proxy.File == "" {
		return fmt.Errorf("invalid configuration: proxy enabled without proxy file")
	}
	return nil
}

// RequireSearchTerms verifies the search target after CLI overrides
func (c *Config) RequireSearchTerms() error {
	if c.Search.Stadt == "" {
		return fmt.Errorf("stadt is required")
	}
	if c.Search.Branche == "" && !c.Search.AllBranchen && c.Search.Kategorie == "" {
		return fmt.Errorf("branche is required unless -all-branchen or -kategorie is set")
	}
	return nil
}

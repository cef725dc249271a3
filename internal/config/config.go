package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDatasetURL         = "https://github.com/beoutbreakprepared/nCoV2019/raw/master/latest_data/latestdata.tar.gz"
	DefaultFetchTimeout       = 10 * time.Minute
	DefaultCensorWindowDays   = 14
	DefaultMaxDelay           = 60
	DefaultIncubationDays     = 5
	DefaultCacheKey           = "p_delay.csv"
	DefaultHDIMass            = 0.95
	DefaultTestsFloorFraction = 0.1
	DefaultFittedMeanLog      = 1.68
	DefaultFittedSDLog        = 0.92
	DefaultFittedDays         = 70
)

// Cache drivers accepted in cache.driver.
const (
	DriverFilesystem = "fs"
	DriverMemory     = "memory"
	DriverSQLite     = "sqlite"
	DriverS3         = "s3"
)

// Config is the top-level rtlive configuration.
type Config struct {
	LineList LineList `yaml:"linelist"`
	Delay    Delay    `yaml:"delay"`
	Summary  Summary  `yaml:"summary"`
	Cache    Cache    `yaml:"cache"`
	Metrics  Metrics  `yaml:"metrics"`
}

// LineList configures the download and cleaning of the patient line-list.
type LineList struct {
	// URL is the gzip-compressed dataset location.
	URL string `yaml:"url"`

	// Timeout bounds the whole download, body included.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures credentials for private mirrors of the dataset.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`

	// Corrections maps known mistyped date strings to their fixed value.
	// Applied to both date columns before any other filtering.
	Corrections map[string]string `yaml:"corrections"`

	// ExcludedCountries lists countries whose records are dropped entirely.
	ExcludedCountries []string `yaml:"excluded_countries"`

	// CensorWindowDays drops onsets that fall within this many days of the
	// latest onset, since those cases are not yet confirmed.
	CensorWindowDays int `yaml:"censor_window_days"`

	// Progress shows a download progress bar on stderr.
	Progress bool `yaml:"progress"`
}

// CensorWindow returns CensorWindowDays as a duration.
func (l LineList) CensorWindow() time.Duration {
	return time.Duration(l.CensorWindowDays) * 24 * time.Hour
}

// AuthConfig specifies the authentication mode for the dataset URL.
type AuthConfig struct {
	// Mode is one of: bearer | basic | none.
	Mode string `yaml:"mode"`

	// TokenEnv is the name of the environment variable that holds the token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the dataset download.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal mirrors in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Delay configures both delay distribution builders.
type Delay struct {
	// MaxDelay discards empirical delays longer than this many days.
	MaxDelay int `yaml:"max_delay"`

	// IncubationDays is the number of zero-probability days prepended to
	// the empirical distribution.
	IncubationDays int `yaml:"incubation_days"`

	// CacheKey names the cached empirical distribution in the cache store.
	CacheKey string `yaml:"cache_key"`

	// Fitted holds the lognormal parameters of the parametric builder.
	Fitted Fitted `yaml:"fitted"`
}

// Fitted holds lognormal parameters on the log scale.
type Fitted struct {
	MeanLog float64 `yaml:"mean_log"`
	SDLog   float64 `yaml:"sd_log"`
	Days    int     `yaml:"days"`
}

// Summary configures the inference summarizer.
type Summary struct {
	// HDIMass is the probability mass of the credible interval, in (0, 1).
	HDIMass float64 `yaml:"hdi_mass"`

	// TestsFloorFraction floors the test volume at this fraction of the
	// largest daily test count before dividing positives by it.
	TestsFloorFraction float64 `yaml:"tests_floor_fraction"`
}

// Cache selects the store that holds the empirical delay distribution.
type Cache struct {
	// Driver is one of: fs | memory | sqlite | s3.
	Driver string `yaml:"driver"`

	// Path is the fs root directory or the sqlite database file.
	Path string `yaml:"path"`

	// S3 is used when Driver == "s3".
	S3 S3Config `yaml:"s3"`
}

// S3Config configures the S3/MinIO cache driver. Credentials come from the
// default AWS chain (environment, shared config, instance role).
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// Metrics configures the optional Prometheus textfile output.
type Metrics struct {
	// Textfile is written after each run when non-empty.
	Textfile string `yaml:"textfile"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	// yaml.v3 merges into existing maps, so corrections start empty and the
	// defaults apply only when the key is absent.
	cfg := Default()
	cfg.LineList.Corrections = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if cfg.LineList.Corrections == nil {
		cfg.LineList.Corrections = DefaultCorrections()
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		LineList: LineList{
			URL:     DefaultDatasetURL,
			Timeout: DefaultFetchTimeout,
			Corrections: DefaultCorrections(),
			// Mexico confirms many cases on the same day regardless of onset.
			ExcludedCountries: []string{"Mexico"},
			CensorWindowDays:  DefaultCensorWindowDays,
		},
		Delay: Delay{
			MaxDelay:       DefaultMaxDelay,
			IncubationDays: DefaultIncubationDays,
			CacheKey:       DefaultCacheKey,
			Fitted: Fitted{
				MeanLog: DefaultFittedMeanLog,
				SDLog:   DefaultFittedSDLog,
				Days:    DefaultFittedDays,
			},
		},
		Summary: Summary{
			HDIMass:            DefaultHDIMass,
			TestsFloorFraction: DefaultTestsFloorFraction,
		},
		Cache: Cache{
			Driver: DriverFilesystem,
			Path:   defaultCacheDir(),
		},
	}
}

// DefaultCorrections returns the stock date fixes: an errant month-first
// date, and a day that does not exist.
func DefaultCorrections() map[string]string {
	return map[string]string{
		"01.31.2020": "31.01.2020",
		"31.04.2020": "01.05.2020",
	}
}

// defaultCacheDir is ~/.local/share/rtlive, or a relative directory when the
// home directory cannot be resolved.
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rtlive"
	}
	return filepath.Join(home, ".local", "share", "rtlive")
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.LineList.URL == "" {
		return fmt.Errorf("linelist.url is required")
	}
	if cfg.LineList.Timeout <= 0 {
		return fmt.Errorf("linelist.timeout must be positive")
	}
	if cfg.LineList.CensorWindowDays < 0 {
		return fmt.Errorf("linelist.censor_window_days must not be negative")
	}
	switch cfg.LineList.Auth.Mode {
	case "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("linelist.auth: unknown mode %q", cfg.LineList.Auth.Mode)
	}
	if cfg.Delay.MaxDelay < 0 {
		return fmt.Errorf("delay.max_delay must not be negative")
	}
	if cfg.Delay.IncubationDays < 0 {
		return fmt.Errorf("delay.incubation_days must not be negative")
	}
	if cfg.Delay.CacheKey == "" {
		return fmt.Errorf("delay.cache_key is required")
	}
	if cfg.Delay.Fitted.SDLog <= 0 {
		return fmt.Errorf("delay.fitted.sd_log must be positive")
	}
	if cfg.Delay.Fitted.Days < 2 {
		return fmt.Errorf("delay.fitted.days must be at least 2")
	}
	if cfg.Summary.HDIMass <= 0 || cfg.Summary.HDIMass >= 1 {
		return fmt.Errorf("summary.hdi_mass must be in (0, 1), got %v", cfg.Summary.HDIMass)
	}
	if cfg.Summary.TestsFloorFraction < 0 || cfg.Summary.TestsFloorFraction > 1 {
		return fmt.Errorf("summary.tests_floor_fraction must be in [0, 1], got %v", cfg.Summary.TestsFloorFraction)
	}
	switch cfg.Cache.Driver {
	case DriverFilesystem, DriverSQLite:
		if cfg.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for driver %q", cfg.Cache.Driver)
		}
	case DriverMemory:
	case DriverS3:
		if cfg.Cache.S3.Bucket == "" {
			return fmt.Errorf("cache.s3.bucket is required for driver %q", DriverS3)
		}
	default:
		return fmt.Errorf("cache: unknown driver %q", cfg.Cache.Driver)
	}
	return nil
}

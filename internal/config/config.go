package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	ProviderBaseURL  string
	GeocodeBaseURL   string
	HighResModel     string
	CoarseModel      string
	HighResHours     int
	CoarseHours      int
	Timezone         string
	GeocodeLanguage  string
	GeocodeCountry   string
	IncludeRadiation bool
	ProviderTimeout  time.Duration

	RequestTimeout time.Duration

	CacheTTL     time.Duration
	CacheBackend string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	SweepInterval           time.Duration
	SchedulerStrategy       string // "timer" or "polling" (agent)
	PollInterval            time.Duration
	DefaultNotificationTime string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	WarmLocations []string
	WarmInterval  time.Duration

	StateDir string

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Provider struct {
		URL              string `yaml:"url"`
		GeocodeURL       string `yaml:"geocode_url"`
		HighResModel     string `yaml:"high_res_model"`
		CoarseModel      string `yaml:"coarse_model"`
		HighResHours     int    `yaml:"high_res_hours"`
		CoarseHours      int    `yaml:"coarse_hours"`
		Timezone         string `yaml:"timezone"`
		Language         string `yaml:"language"`
		Country          string `yaml:"country"`
		IncludeRadiation bool   `yaml:"include_radiation"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"provider"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		WarmLocations []string `yaml:"warm_locations"`
		WarmInterval  string   `yaml:"warm_interval"`
	} `yaml:"cache"`

	RateLimit struct {
		RPS   int `yaml:"rps"`
		Burst int `yaml:"burst"`
	} `yaml:"rate_limit"`

	Scheduler struct {
		SweepInterval           string `yaml:"sweep_interval"`
		Strategy                string `yaml:"strategy"`
		PollInterval            string `yaml:"poll_interval"`
		DefaultNotificationTime string `yaml:"default_notification_time"`
	} `yaml:"scheduler"`

	Push struct {
		VAPIDPublicKey string `yaml:"vapid_public_key"`
		Subject        string `yaml:"subject"`
	} `yaml:"push"`

	Agent struct {
		StateDir string `yaml:"state_dir"`
	} `yaml:"agent"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. A .env file, when present, is merged into the
// environment first. The VAPID private key comes from VAPID_PRIVATE_KEY env
// or the secrets file. Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.ProviderBaseURL = fc.Provider.URL
	if cfg.ProviderBaseURL == "" {
		cfg.ProviderBaseURL = "https://api.open-meteo.com/v1/dwd-icon"
	}
	cfg.GeocodeBaseURL = fc.Provider.GeocodeURL
	if cfg.GeocodeBaseURL == "" {
		cfg.GeocodeBaseURL = "https://geocoding-api.open-meteo.com/v1/search"
	}
	cfg.HighResModel = fc.Provider.HighResModel
	if cfg.HighResModel == "" {
		cfg.HighResModel = "icon_d2"
	}
	cfg.CoarseModel = fc.Provider.CoarseModel
	if cfg.CoarseModel == "" {
		cfg.CoarseModel = "icon_eu"
	}
	cfg.HighResHours = fc.Provider.HighResHours
	if cfg.HighResHours <= 0 {
		cfg.HighResHours = 48
	}
	cfg.CoarseHours = fc.Provider.CoarseHours
	if cfg.CoarseHours <= 0 {
		cfg.CoarseHours = 72
	}
	cfg.Timezone = fc.Provider.Timezone
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Prague"
	}
	cfg.GeocodeLanguage = fc.Provider.Language
	if cfg.GeocodeLanguage == "" {
		cfg.GeocodeLanguage = "en"
	}
	cfg.GeocodeCountry = fc.Provider.Country
	cfg.IncludeRadiation = fc.Provider.IncludeRadiation
	cfg.ProviderTimeout = parseDuration(fc.Provider.Timeout, 5*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 15*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.WarmLocations = fc.Cache.WarmLocations
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.RateLimitRPS = fc.RateLimit.RPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.RateLimit.Burst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.SweepInterval = parseDuration(fc.Scheduler.SweepInterval, 30*time.Second)
	cfg.SchedulerStrategy = strings.TrimSpace(strings.ToLower(fc.Scheduler.Strategy))
	if cfg.SchedulerStrategy == "" {
		cfg.SchedulerStrategy = "timer"
	}
	cfg.PollInterval = parseDuration(fc.Scheduler.PollInterval, 30*time.Second)
	cfg.DefaultNotificationTime = fc.Scheduler.DefaultNotificationTime
	if cfg.DefaultNotificationTime == "" {
		cfg.DefaultNotificationTime = "07:00"
	}

	cfg.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	if cfg.VAPIDPublicKey == "" {
		cfg.VAPIDPublicKey = fc.Push.VAPIDPublicKey
	}
	cfg.VAPIDSubject = fc.Push.Subject
	if cfg.VAPIDSubject == "" {
		cfg.VAPIDSubject = "mailto:admin@localhost"
	}
	cfg.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	if cfg.VAPIDPrivateKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.VAPIDPrivateKey = sec.VAPIDPrivateKey
		}
	}

	cfg.StateDir = fc.Agent.StateDir
	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Join(cwd, "state")
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. The sweep cadence must stay at or
// under a minute or the minute-granularity fire window can be skipped.
func validate(cfg *Config) error {
	if cfg.SweepInterval > time.Minute {
		return fmt.Errorf("scheduler.sweep_interval must be <= 1m, got %s", cfg.SweepInterval)
	}
	if cfg.PollInterval > time.Minute {
		return fmt.Errorf("scheduler.poll_interval must be <= 1m, got %s", cfg.PollInterval)
	}
	switch cfg.SchedulerStrategy {
	case "timer", "polling":
	default:
		return fmt.Errorf("scheduler.strategy must be timer or polling, got %q", cfg.SchedulerStrategy)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if _, err := time.Parse("15:04", cfg.DefaultNotificationTime); err != nil {
		return fmt.Errorf("scheduler.default_notification_time must be HH:MM, got %q", cfg.DefaultNotificationTime)
	}
	if cfg.RequestTimeout <= cfg.ProviderTimeout {
		cfg.RequestTimeout = cfg.ProviderTimeout + time.Second
	}
	return nil
}

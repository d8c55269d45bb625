package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/silvestred/nba-team-ats-trends-scrape/normalize"
)

// SourceName identifies the upstream in run records and snapshots.
const SourceName = "teamrankings_ats_trends"

type Config struct {
	Storage   StorageConfig
	Fetch     FetchConfig
	Scheduler SchedulerConfig
	Server    ServerConfig
	Archive   ArchiveConfig
	LogPath   string
	Leagues   map[string]*LeagueConfig
}

type StorageConfig struct {
	// Driver selects the snapshot store: "postgres" (default) or "sqlite".
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

type FetchConfig struct {
	UserAgent      string
	ProxyURL       string
	RequestTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	RequestsPerMin int
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type ServerConfig struct {
	Addr             string
	CORSAllowOrigins []string
}

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether raw page archiving is configured.
func (a *ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LeagueConfig describes one independent trend source and the versioned
// field mapping used to normalize its table.
type LeagueConfig struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Enabled *bool             `yaml:"enabled"`
	Mapping normalize.Mapping `yaml:"mapping"`
}

// IsEnabled defaults to true when the YAML omits the flag.
func (l *LeagueConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "postgres"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			SQLitePath:  getEnv("SQLITE_PATH", "trends.db"),
		},
		Fetch: FetchConfig{
			UserAgent:      getEnv("SCRAPE_USER_AGENT", "Mozilla/5.0"),
			ProxyURL:       os.Getenv("SCRAPE_PROXY_URL"),
			RequestTimeout: getEnvDuration("SCRAPE_TIMEOUT", 30*time.Second),
			MaxAttempts:    getEnvInt("SCRAPE_MAX_ATTEMPTS", 3),
			BackoffBase:    getEnvDuration("SCRAPE_BACKOFF_BASE", 2*time.Second),
			RequestsPerMin: getEnvInt("SCRAPE_REQUESTS_PER_MIN", 30),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Server: ServerConfig{
			Addr:             getEnv("SERVER_ADDR", ":8080"),
			CORSAllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_S3_BUCKET"),
			Region:          getEnv("ARCHIVE_S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("ARCHIVE_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARCHIVE_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARCHIVE_S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("ARCHIVE_S3_PREFIX", "raw"),
		},
		LogPath: getEnv("LOG_PATH", "ingest.log"),
		Leagues: make(map[string]*LeagueConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if cfg.Storage.Driver == "postgres" && cfg.Storage.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	if err := cfg.loadLeagueConfigs(); err != nil {
		return nil, err
	}
	if len(cfg.Leagues) == 0 {
		for id, lc := range DefaultLeagues() {
			cfg.Leagues[id] = lc
		}
	}

	return cfg, nil
}

// DefaultLeagues is the built-in registry of TeamRankings ATS trend pages.
func DefaultLeagues() map[string]*LeagueConfig {
	names := map[string]string{
		"nba": "National Basketball Association",
		"nfl": "National Football League",
		"ncb": "College Basketball",
		"ncf": "College Football",
	}

	out := make(map[string]*LeagueConfig, len(names))
	for id, name := range names {
		out[id] = &LeagueConfig{
			ID:      id,
			Name:    name,
			URL:     fmt.Sprintf("https://www.teamrankings.com/%s/trends/ats_trends/", id),
			Mapping: normalize.DefaultMapping(),
		}
	}
	return out
}

// loadLeagueConfigs reads per-league YAML overrides. A missing directory is
// fine; the built-in registry applies.
func (c *Config) loadLeagueConfigs() error {
	configDir := getEnv("LEAGUE_CONFIG_DIR", "config/leagues")
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var league LeagueConfig
		if err := yaml.Unmarshal(data, &league); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if league.ID == "" {
			return fmt.Errorf("%s: league id is required", path)
		}
		if len(league.Mapping.Fields) == 0 {
			league.Mapping = normalize.DefaultMapping()
		}

		c.Leagues[league.ID] = &league
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AI       AIConfig       `mapstructure:"ai"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	Mode        string     `mapstructure:"mode"`
	FrontendDir string     `mapstructure:"frontend_dir"`
	CORS        CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN returns the connection string for the configured driver.
// Postgres uses URL; SQLite uses Path unless a non-postgres URL is set.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" || (d.Driver == "" && IsPostgresURL(d.URL)) {
		return d.URL
	}
	if d.URL != "" && !IsPostgresURL(d.URL) {
		return d.URL
	}
	return d.Path
}

// IsPostgresURL reports whether url has a postgres:// or postgresql:// scheme.
func IsPostgresURL(url string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	Queue        string `mapstructure:"queue"`
	HeartbeatKey string `mapstructure:"heartbeat_key"`
}

// Embedded reports whether jobs run on an in-process worker because no
// Redis URL is configured.
func (r RedisConfig) Embedded() bool {
	return strings.TrimSpace(r.URL) == ""
}

type AIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Referer string        `mapstructure:"referer"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	UnitPriceUSD        float64 `mapstructure:"unit_price_usd"`
	UrgentFollowupLimit int     `mapstructure:"urgent_followup_limit"`
	StrictStages        bool    `mapstructure:"strict_stages"`
}

type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	PollTimeout       time.Duration `mapstructure:"poll_timeout"`
	RDAPStubDuration  time.Duration `mapstructure:"rdap_stub_duration"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "failed to read config file")
		}
	}

	// Deployment platforms hand these over under their conventional names
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.frontend_dir", "FRONTEND_DIR")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("ai.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.model", "AI_MODEL")
	v.BindEnv("pipeline.unit_price_usd", "PIPELINE_UNIT_PRICE_USD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal config")
	}

	// Without an explicit driver the URL scheme decides
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
		if IsPostgresURL(cfg.Database.URL) {
			cfg.Database.Driver = "postgres"
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.frontend_dir", "./dist")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "./data/dealos.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.queue", "dealos:jobs")
	v.SetDefault("redis.heartbeat_key", "dealos:worker:heartbeat")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "google/gemini-3-flash-preview")
	v.SetDefault("ai.referer", "https://ipv4-deal-os.railway.app")
	v.SetDefault("ai.timeout", 60*time.Second)

	v.SetDefault("pipeline.unit_price_usd", 52.5)
	v.SetDefault("pipeline.urgent_followup_limit", 5)
	v.SetDefault("pipeline.strict_stages", true)

	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.poll_timeout", 5*time.Second)
	v.SetDefault("worker.rdap_stub_duration", 10*time.Second)
	v.SetDefault("worker.heartbeat_interval", 10*time.Second)
}

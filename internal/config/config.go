package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Engine    EngineConfig    `mapstructure:"engine"`
	PriceFeed PriceFeedConfig `mapstructure:"price_feed"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`

	// StrategyDefaults overrides evaluator defaults per variant.
	// Shape: { "grid": { "grid_count": 20 }, "dca": { "amount_usd": 50 } }
	StrategyDefaults map[string]any `mapstructure:"strategy_defaults"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	ConnectRetries  uint          `mapstructure:"connect_retries"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Tick    string `mapstructure:"tick"`
}

type EngineConfig struct {
	Workers      int           `mapstructure:"workers"`
	PriceTimeout time.Duration `mapstructure:"price_timeout"`
}

type PriceFeedConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	CoinPrefix string        `mapstructure:"coin_prefix"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
	MaxRetries uint          `mapstructure:"max_retries"`
}

type CacheConfig struct {
	Driver        string        `mapstructure:"driver"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	PrettyPrint bool   `mapstructure:"pretty_print"`
}

type LedgerConfig struct {
	SeedAsset   string  `mapstructure:"seed_asset"`
	SeedBalance float64 `mapstructure:"seed_balance"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.connect_retries", 5)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.tick", "@every 60s")

	// One worker reproduces the sequential reference tick.
	v.SetDefault("engine.workers", 1)
	v.SetDefault("engine.price_timeout", "10s")

	v.SetDefault("price_feed.base_url", "https://coins.llama.fi")
	v.SetDefault("price_feed.coin_prefix", "coingecko")
	v.SetDefault("price_feed.timeout", "25s")
	v.SetDefault("price_feed.rate_limit", 5.0)
	v.SetDefault("price_feed.burst", 5)
	v.SetDefault("price_feed.max_retries", 3)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "15s")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.service_name", "bitmax-bots")
	v.SetDefault("trace.pretty_print", false)

	v.SetDefault("ledger.seed_asset", "USDC")
	v.SetDefault("ledger.seed_balance", 10000.0)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"trade_executor/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigName = "values_local.yaml"
)

type Credentials struct {
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Passphrase string `yaml:"passphrase"`
}

type ExchangeConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Mainnet      Credentials   `yaml:"mainnet"`
	Testnet      Credentials   `yaml:"testnet"`
	RateInterval time.Duration `yaml:"rate_interval"`
	BaseURL      string        `yaml:"base_url"`
}

// Credentials: набор ключей под выбранную сеть.
func (e ExchangeConfig) Credentials(testnet bool) models.Credentials {
	src := e.Mainnet
	if testnet {
		src = e.Testnet
	}
	return models.Credentials{
		APIKey:     src.APIKey,
		APISecret:  src.APISecret,
		Passphrase: src.Passphrase,
		Testnet:    testnet,
	}
}

// Config ...
type Config struct {
	Service struct {
		Name       string `yaml:"name"`
		LogLevel   string `yaml:"log_level"`
		Dev        bool   `yaml:"dev"`
		HealthAddr string `yaml:"health_addr"`
		// пусто => POST /v1/* без авторизации, поэтому по умолчанию слушаем только loopback
		APIToken string `yaml:"api_token"`
	} `yaml:"service"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	UseTestnet bool `yaml:"use_testnet"`

	Exchanges struct {
		OKX     ExchangeConfig `yaml:"okx"`
		Binance ExchangeConfig `yaml:"binance"`
	} `yaml:"exchanges"`

	HTTP struct {
		Timeout      time.Duration `yaml:"timeout"`
		ProxyEnabled bool          `yaml:"proxy_enabled"`
		ProxyURL     string        `yaml:"proxy_url"`
	} `yaml:"http"`

	Trading struct {
		DefaultLeverage     int     `yaml:"default_leverage"`
		DefaultPositionSize float64 `yaml:"default_position_size"`
		EnableDynamicSL     bool    `yaml:"enable_dynamic_sl"`
	} `yaml:"trading"`

	Monitor struct {
		Interval        time.Duration `yaml:"interval"`
		AccountInterval time.Duration `yaml:"account_interval"`
		PriceMaxAge     time.Duration `yaml:"price_max_age"`
		EventCooldown   time.Duration `yaml:"event_cooldown"`

		// пороги предупреждений
		RiskMarginRatio  float64 `yaml:"risk_margin_ratio"`  // %
		RiskLossPct      float64 `yaml:"risk_loss_pct"`      // % от номинала
		RiskHoldingHours float64 `yaml:"risk_holding_hours"` // часы
	} `yaml:"monitor"`

	Stream struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"stream"`
}

// ProxyURL: пустая строка, если прокси выключен.
func (c *Config) ProxyURL() string {
	if !c.HTTP.ProxyEnabled {
		return ""
	}
	return c.HTTP.ProxyURL
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "trade_executor")
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.health_addr", "127.0.0.1:8080")

	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("exchanges.okx.rate_interval", "20ms")
	v.SetDefault("exchanges.binance.rate_interval", "50ms")

	v.SetDefault("http.timeout", "10s")

	v.SetDefault("trading.default_leverage", 10)
	v.SetDefault("trading.default_position_size", 100.0)
	v.SetDefault("trading.enable_dynamic_sl", true)

	v.SetDefault("monitor.interval", "1s")
	v.SetDefault("monitor.account_interval", "60s")
	v.SetDefault("monitor.price_max_age", "5s")
	v.SetDefault("monitor.event_cooldown", "5m")
	v.SetDefault("monitor.risk_margin_ratio", 80.0)
	v.SetDefault("monitor.risk_loss_pct", 20.0)
	v.SetDefault("monitor.risk_holding_hours", 48.0)

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.url", "wss://ws.okx.com:8443/ws/v5/public")
}

type envBinding struct {
	key  string
	env  string
	cast func(v *viper.Viper, key string) any
}

func asString(v *viper.Viper, key string) any { return v.GetString(key) }
func asInt(v *viper.Viper, key string) any    { return v.GetInt64(key) }
func asFloat(v *viper.Viper, key string) any  { return v.GetFloat64(key) }
func asBool(v *viper.Viper, key string) any   { return v.GetBool(key) }

// env-переменные поверх файла; значения приводятся к типу поля,
// иначе yaml не разберёт "true" в bool.
var envBindings = []envBinding{
	{"telegram.token", "TELEGRAM_TOKEN", asString},
	{"telegram.chat_id", "TELEGRAM_CHAT_ID", asInt},
	{"db_dsn", "DATABASE_DSN", asString},
	{"use_testnet", "USE_TESTNET", asBool},
	{"exchanges.okx.mainnet.api_key", "OKX_API_KEY", asString},
	{"exchanges.okx.mainnet.api_secret", "OKX_API_SECRET", asString},
	{"exchanges.okx.mainnet.passphrase", "OKX_PASSPHRASE", asString},
	{"exchanges.okx.testnet.api_key", "OKX_TESTNET_API_KEY", asString},
	{"exchanges.okx.testnet.api_secret", "OKX_TESTNET_API_SECRET", asString},
	{"exchanges.okx.testnet.passphrase", "OKX_TESTNET_PASSPHRASE", asString},
	{"exchanges.binance.mainnet.api_key", "BINANCE_API_KEY", asString},
	{"exchanges.binance.mainnet.api_secret", "BINANCE_API_SECRET", asString},
	{"exchanges.binance.testnet.api_key", "BINANCE_TESTNET_API_KEY", asString},
	{"exchanges.binance.testnet.api_secret", "BINANCE_TESTNET_API_SECRET", asString},
	{"trading.default_leverage", "DEFAULT_LEVERAGE", asInt},
	{"trading.default_position_size", "DEFAULT_POSITION_SIZE", asFloat},
	{"trading.enable_dynamic_sl", "ENABLE_DYNAMIC_SL", asBool},
	{"monitor.risk_margin_ratio", "RISK_WARNING_MARGIN_RATIO", asFloat},
	{"monitor.risk_loss_pct", "RISK_WARNING_LOSS_PERCENTAGE", asFloat},
	{"monitor.risk_holding_hours", "RISK_WARNING_HOLDING_TIME", asFloat},
	{"http.proxy_enabled", "ENABLE_PROXY", asBool},
	{"http.proxy_url", "PROXY_URL", asString},
	{"service.log_level", "LOG_LEVEL", asString},
	{"service.api_token", "API_TOKEN", asString},
	{"service.health_addr", "HEALTH_ADDR", asString},
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigName
	}
	return Load(filepath.Join(configDir, configFileName))
}

// Load читает yaml (если файл есть), накладывает дефолты и env.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", b.env)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	for _, b := range envBindings {
		if _, ok := os.LookupEnv(b.env); ok {
			v.Set(b.key, b.cast(v, b.key))
		}
	}

	bs, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal settings to yaml")
	}

	var cfg Config
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	return &cfg, nil
}

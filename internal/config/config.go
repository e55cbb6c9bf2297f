package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`         // 服务器配置
	Database      DatabaseConfig      `mapstructure:"database"`       // PostgreSQL配置
	Log           LogConfig           `mapstructure:"log"`            // 日志配置
	Sync          SyncConfig          `mapstructure:"sync"`           // 批任务调度配置
	OddsProvider  OddsProviderConfig  `mapstructure:"odds_provider"`  // 赔率源配置
	ReferenceFeed ReferenceFeedConfig `mapstructure:"reference_feed"` // 球员名册源配置
	Identity      IdentityConfig      `mapstructure:"identity"`       // 球员身份匹配配置
	Prediction    PredictionConfig    `mapstructure:"prediction"`     // 预测模型配置
	Cache         CacheConfig         `mapstructure:"cache"`          // 参考数据缓存配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// SyncConfig 批任务调度配置，cron 表达式为空则不调度该任务
type SyncConfig struct {
	RefreshCron   string   `mapstructure:"refresh_cron"`   // 盘口刷新
	CLVCron       string   `mapstructure:"clv_cron"`       // CLV 计算
	GradeCron     string   `mapstructure:"grade_cron"`     // 结算
	PredictCron   string   `mapstructure:"predict_cron"`   // 预测
	MappingCron   string   `mapstructure:"mapping_cron"`   // 球员映射重建
	Concurrency   int      `mapstructure:"concurrency"`    // 按比赛并发的 worker 数
	FreshnessMins int      `mapstructure:"freshness_mins"` // 盘口刷新的最短间隔（分钟）
	Markets       []string `mapstructure:"markets"`        // 刷新的盘口类型
}

// OddsProviderConfig 赔率源配置
type OddsProviderConfig struct {
	Name             string  `mapstructure:"name"`              // 注册的赔率源名，如 theodds
	BaseURL          string  `mapstructure:"base_url"`          // API基础地址
	APIKey           string  `mapstructure:"api_key"`           // API Key（从 env 覆盖）
	Sport            string  `mapstructure:"sport"`             // 运动路径，如 americanfootball_nfl
	Regions          string  `mapstructure:"regions"`           // 区域，如 us_dfs
	Bookmaker        string  `mapstructure:"bookmaker"`         // 博彩公司 key，如 prizepicks
	Timeout          int     `mapstructure:"timeout"`           // 请求超时（秒）
	MaxRetries       int     `mapstructure:"max_retries"`       // 可重试错误的最大重试次数
	BaseDelayMs      int     `mapstructure:"base_delay_ms"`     // 退避基数（毫秒）
	MaxDelayMs       int     `mapstructure:"max_delay_ms"`      // 退避上限（毫秒）
	MaxJitterMs      int     `mapstructure:"max_jitter_ms"`     // 随机抖动上限（毫秒）
	RateLimit        float64 `mapstructure:"rate_limit"`        // 每秒请求数，<=0 不限速
	BreakerThreshold int     `mapstructure:"breaker_threshold"` // 熔断半开时允许的请求数
	BreakerTimeout   int     `mapstructure:"breaker_timeout"`   // 熔断打开持续时间（秒）
	Proxy            string  `mapstructure:"proxy"`             // 代理地址
	ToleranceMins    int     `mapstructure:"tolerance_mins"`    // 开赛时间匹配容差（分钟）
}

// ReferenceFeedConfig 球员名册源配置
type ReferenceFeedConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // 秒
	Proxy   string `mapstructure:"proxy"`
}

// IdentityConfig 球员身份匹配配置
type IdentityConfig struct {
	Threshold float64 `mapstructure:"threshold"` // 最低匹配分
}

// PredictionConfig 预测模型配置
type PredictionConfig struct {
	Simulations  int    `mapstructure:"simulations"`   // 蒙特卡洛模拟次数
	Seed         uint64 `mapstructure:"seed"`          // 随机种子，0 表示按时间
	ModelVersion string `mapstructure:"model_version"` // 写入 predictions 的版本号
}

// CacheConfig 参考数据缓存配置
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`    // db/redis
	TTL       time.Duration `mapstructure:"ttl"`        // 缓存有效期
	RedisAddr string        `mapstructure:"redis_addr"` // Redis 地址
	RedisDB   int           `mapstructure:"redis_db"`
	RedisPass string        `mapstructure:"redis_password"`
}

// DefaultMarkets 默认刷新的盘口
var DefaultMarkets = []string{
	"player_pass_yds", "player_rush_yds", "player_reception_yds",
	"player_pass_tds", "player_rush_tds", "player_reception_tds",
	"player_pass_attempts", "player_rush_attempts", "player_receptions",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("sync.freshness_mins", 30)
	v.SetDefault("sync.markets", DefaultMarkets)
	v.SetDefault("odds_provider.name", "theodds")
	v.SetDefault("odds_provider.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("odds_provider.sport", "americanfootball_nfl")
	v.SetDefault("odds_provider.regions", "us_dfs")
	v.SetDefault("odds_provider.bookmaker", "prizepicks")
	v.SetDefault("odds_provider.timeout", 8)
	v.SetDefault("odds_provider.max_retries", 4)
	v.SetDefault("odds_provider.base_delay_ms", 250)
	v.SetDefault("odds_provider.max_delay_ms", 2000)
	v.SetDefault("odds_provider.max_jitter_ms", 150)
	v.SetDefault("odds_provider.rate_limit", 2)
	v.SetDefault("odds_provider.breaker_threshold", 3)
	v.SetDefault("odds_provider.breaker_timeout", 60)
	v.SetDefault("odds_provider.tolerance_mins", 10)
	v.SetDefault("reference_feed.timeout", 15)
	v.SetDefault("identity.threshold", 0.8)
	v.SetDefault("prediction.simulations", 10000)
	v.SetDefault("prediction.model_version", "4.0_simple")
	v.SetDefault("cache.backend", "db")
	v.SetDefault("cache.ttl", 24*time.Hour)
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	return LoadConfigWith(viper.GetViper())
}

// LoadConfigWith 使用指定 viper 实例加载，命令行 flag 可提前绑定到该实例
func LoadConfigWith(v *viper.Viper) (*Config, error) {
	// 1. 加载 .env（若存在）
	_ = godotenv.Load()

	// 2. 读取 config.yaml；文件不存在时只用默认值和 env
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	v.SetTypeByDefaultValue(true)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("ODDS_API_KEY"); v != "" {
		cfg.OddsProvider.APIKey = v
	}
	if v := os.Getenv("ODDS_PROXY"); v != "" {
		cfg.OddsProvider.Proxy = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REFERENCE_FEED_URL"); v != "" {
		cfg.ReferenceFeed.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPass = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PREDICTION_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Prediction.Seed = seed
		}
	}
}

// GetGORMConfig 按配置的日志级别构建 gorm.Config
func (d *DatabaseConfig) GetGORMConfig() *gorm.Config {
	level := logger.Warn
	switch d.LogLevel {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}
	return &gorm.Config{Logger: logger.Default.LogMode(level)}
}

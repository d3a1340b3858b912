package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// CRMApiCfg 远端CRM服务
type CRMApiCfg struct {
	BaseURL       string        `env:"CRM_API_BASE_URL,notEmpty"`
	Timeout       time.Duration `env:"CRM_API_TIMEOUT" envDefault:"15s"`
	RatePerSecond float64       `env:"CRM_API_RATE_PER_SEC" envDefault:"20"`
	Burst         int           `env:"CRM_API_BURST" envDefault:"10"`
	ServiceToken  string        `env:"CRM_SERVICE_TOKEN"` // 后台任务使用的服务账号令牌
}

// MongoCfg 审计存储，URI为空时使用内存存储
type MongoCfg struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB" envDefault:"crm_followup"`
}

// RedisCfg 负载缓存，地址为空时不缓存
type RedisCfg struct {
	Addr        string        `env:"REDIS_ADDR"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB" envDefault:"0"`
	CapacityTTL time.Duration `env:"CAPACITY_CACHE_TTL" envDefault:"1m"`
}

// AMQPCfg 领域事件，地址为空时只写日志
type AMQPCfg struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"crm.followups"`
}

// Config 应用配置
type Config struct {
	Port              int      `env:"PORT" envDefault:"8080"`
	GinMode           string   `env:"GIN_MODE" envDefault:"debug"`
	JWTKey            string   `env:"JWT_KEY,notEmpty"`
	PhoneRegion       string   `env:"PHONE_REGION" envDefault:"IN"`
	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:","`
	OverdueDigestHour int      `env:"OVERDUE_DIGEST_HOUR" envDefault:"8"` // 每日逾期汇总的执行小时，负数表示不启用

	CRMApi CRMApiCfg
	Mongo  MongoCfg
	Redis  RedisCfg
	AMQP   AMQPCfg
}

// Debug 是否调试模式
func (c Config) Debug() bool {
	return c.GinMode == "debug"
}

// LoadConfig 从环境变量加载配置，当前目录存在 .env 时先加载
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse 只解析环境变量
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if cfg.OverdueDigestHour > 23 {
		return cfg, fmt.Errorf("OVERDUE_DIGEST_HOUR 超出范围: %d", cfg.OverdueDigestHour)
	}
	return cfg, nil
}

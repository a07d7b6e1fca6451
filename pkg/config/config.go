package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env       string
	HTTPAddr  string
	AppURL    string
	Timezone  string
	LogLevel  string
	WSOrigins []string // WebSocket 允许的来源，如 "admin.shopify.com,*.example.com"
	Database  DatabaseConfig
	JWT       JWTConfig
	Shopify   ShopifyConfig
	Sync      SyncConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig 会话令牌配置
type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// ShopifyConfig Shopify 应用配置
type ShopifyConfig struct {
	APIKey     string
	APISecret  string
	Scopes     string
	APIVersion string
}

// SyncConfig 同步配置
type SyncConfig struct {
	PageSize           int
	InitialSyncRetries int
	ManualSyncInterval time.Duration
}

// StorageConfig S3 兼容对象存储配置
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
	BasePath  string
}

// RedisConfig 实时消息跨实例转发配置（Addr 为空则关闭）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Namespace string
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load 加载配置：.env (可选) -> 环境变量 -> 默认值
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:       v.GetString("APP_ENV"),
		HTTPAddr:  v.GetString("HTTP_ADDR"),
		AppURL:    strings.TrimRight(v.GetString("APP_URL"), "/"),
		Timezone:  v.GetString("TZ"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		WSOrigins: splitList(v.GetString("WS_ORIGIN_PATTERNS")),
		Database: DatabaseConfig{
			DSN:             v.GetString("DATABASE_DSN"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Shopify: ShopifyConfig{
			APIKey:     v.GetString("SHOPIFY_API_KEY"),
			APISecret:  v.GetString("SHOPIFY_API_SECRET"),
			Scopes:     v.GetString("SHOPIFY_SCOPES"),
			APIVersion: v.GetString("SHOPIFY_API_VERSION"),
		},
		Sync: SyncConfig{
			PageSize:           v.GetInt("SYNC_PAGE_SIZE"),
			InitialSyncRetries: v.GetInt("INITIAL_SYNC_RETRIES"),
			ManualSyncInterval: v.GetDuration("MANUAL_SYNC_INTERVAL"),
		},
		Storage: StorageConfig{
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			PublicURL: v.GetString("S3_PUBLIC_URL"),
			BasePath:  v.GetString("S3_BASE_PATH"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("METRICS_NAMESPACE"),
		},
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=vendor_hub port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("JWT_SECRET", "vendor-hub-secret-key-change-in-production")
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("JWT_ISSUER", "vendor-hub")
	v.SetDefault("SHOPIFY_SCOPES", "read_orders,read_products")
	v.SetDefault("SHOPIFY_API_VERSION", "2024-10")
	v.SetDefault("SYNC_PAGE_SIZE", 50)
	v.SetDefault("INITIAL_SYNC_RETRIES", 2)
	v.SetDefault("MANUAL_SYNC_INTERVAL", 2*time.Minute)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_BASE_PATH", "vendor-hub")
	v.SetDefault("METRICS_NAMESPACE", "vendor_hub")
}

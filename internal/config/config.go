package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cron     CronConfig
	Cache    CacheConfig
	CORS     CORSConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MigrationsPath: каталог с SQL-миграциями golang-migrate
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Адрес для режима 'single', если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	ExpirationHrs     int    `mapstructure:"expirationHrs"`
	WSTicketExpirySec int    `mapstructure:"wsTicketExpirySec"`
}

// CronConfig содержит настройки прогона квалификации
type CronConfig struct {
	// Secret: общий секрет для /api/cron/*; пустой отключает проверку
	Secret string `mapstructure:"secret"`
	// Enabled включает встроенный планировщик прогонов
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	TimeoutSeconds  int  `mapstructure:"timeout_seconds"`
	// Concurrency: сколько конкурсов обрабатывается параллельно
	Concurrency int `mapstructure:"concurrency"`
}

// CacheConfig содержит время жизни закешированных данных
type CacheConfig struct {
	FeedTTLSeconds   int `mapstructure:"feed_ttl_seconds"`
	ReportTTLMinutes int `mapstructure:"report_ttl_minutes"`
}

// CORSConfig содержит разрешенные источники для CORS и WebSocket
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// SweepInterval возвращает период встроенного планировщика
func (c *CronConfig) SweepInterval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// SweepTimeout возвращает ограничение длительности одного прогона
func (c *CronConfig) SweepTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FeedTTL возвращает время жизни страниц ленты в кеше
func (c *CacheConfig) FeedTTL() time.Duration {
	return time.Duration(c.FeedTTLSeconds) * time.Second
}

// ReportTTL возвращает время жизни последнего отчета прогона в кеше
func (c *CacheConfig) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLMinutes) * time.Minute
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readTimeout", 15)
	vip.SetDefault("server.writeTimeout", 30)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("jwt.expirationHrs", 24)
	vip.SetDefault("jwt.wsTicketExpirySec", 60)
	vip.SetDefault("cron.enabled", false)
	vip.SetDefault("cron.interval_minutes", 5)
	vip.SetDefault("cron.timeout_seconds", 120)
	vip.SetDefault("cron.concurrency", 4)
	vip.SetDefault("cache.feed_ttl_seconds", 30)
	vip.SetDefault("cache.report_ttl_minutes", 24*60)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	setDefaults(vip)

	// Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	// Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// JWT
	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")
	vip.BindEnv("jwt.wsTicketExpirySec", "JWT_WSTICKETEXPIRYSEC")

	// Cron
	vip.BindEnv("cron.secret", "CRON_SECRET")
	vip.BindEnv("cron.enabled", "CRON_ENABLED")
	vip.BindEnv("cron.interval_minutes", "CRON_INTERVAL_MINUTES")
	vip.BindEnv("cron.timeout_seconds", "CRON_TIMEOUT_SECONDS")
	vip.BindEnv("cron.concurrency", "CRON_CONCURRENCY")

	// Cache
	vip.BindEnv("cache.feed_ttl_seconds", "CACHE_FEED_TTL_SECONDS")
	vip.BindEnv("cache.report_ttl_minutes", "CACHE_REPORT_TTL_MINUTES")

	// Server и CORS
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Отсутствие файла не ошибка: значения могут прийти из окружения
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Database Migrations: %s", cfg.Database.MigrationsPath)
		log.Printf("Redis Mode: %s, Addr: %s, Addrs: %v", cfg.Redis.Mode, cfg.Redis.Addr, cfg.Redis.Addrs)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("Cron Enabled: %t, Interval: %d min, Concurrency: %d, Secret Set: %t",
			cfg.Cron.Enabled, cfg.Cron.IntervalMinutes, cfg.Cron.Concurrency, cfg.Cron.Secret != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required (check JWT_SECRET env var)")
	}
	if c.Cron.Enabled && c.Cron.IntervalMinutes <= 0 {
		return fmt.Errorf("cron interval must be positive when the scheduler is enabled")
	}
	if c.Cron.Concurrency <= 0 {
		c.Cron.Concurrency = 1
	}
	if c.Cron.Secret == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("Warning: CRON_SECRET is not set, /api/cron endpoints are unauthenticated.")
	}
	return nil
}

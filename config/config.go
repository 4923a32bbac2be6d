package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config 从环境变量读取
type Config struct {
	Port        string        `env:"PORT,default=3001"`
	DatabaseURL string        `env:"DATABASE_URL"`
	DBHost      string        `env:"DB_HOST,default=127.0.0.1"`
	DBUser      string        `env:"DB_USER,default=postgres"`
	DBPassword  string        `env:"DB_PASSWORD"`
	DBName      string        `env:"DB_NAME,default=equiplend"`
	DBPort      string        `env:"DB_PORT,default=5432"`
	RedisAddr   string        `env:"REDIS_ADDR,default=127.0.0.1:6379"`
	RedisPwd    string        `env:"REDIS_PASSWORD"`
	WebOrigin   string        `env:"WEB_ORIGIN,default=http://localhost:3000"`
	CORSOrigins string        `env:"CORS_ORIGINS"`
	SessionTTL  time.Duration `env:"SESSION_TTL,default=24h"`
	InviteTTL   time.Duration `env:"INVITE_TTL,default=72h"`
	LogMode     string        `env:"LOG_MODE,default=dev"`
	GinMode     string        `env:"GIN_MODE,default=debug"`
	AdminEmail  string        `env:"ADMIN_EMAIL"`
	AdminPwd    string        `env:"ADMIN_PASSWORD"`
	AdminName   string        `env:"ADMIN_NAME,default=Admin User"`
}

// LoadEnv 读取 .env（可选）
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
}

// Load decodes Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	return cfg, nil
}

// DSN prefers DATABASE_URL, falling back to the discrete DB_* variables.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. QUIZHUB_REDIS_ADDR.
const EnvPrefix = "QUIZHUB"

var ErrMissingJWTSecret = errors.New("auth.jwt_secret is required")

// Config holds application configuration loaded from a YAML file and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"` // local, dev, prod
	Server   Server   `mapstructure:"server"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
	Quiz     Quiz     `mapstructure:"quiz"`
	Auth     Auth     `mapstructure:"auth"`
	XP       XP       `mapstructure:"xp"`
	CORS     CORS     `mapstructure:"cors"`
}

type Server struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Postgres struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type Quiz struct {
	TTL          time.Duration `mapstructure:"ttl"`           // quiz cache lifetime
	FixturesPath string        `mapstructure:"fixtures_path"` // YAML quizzes used without Postgres
}

type Auth struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	ElevatedRoles []string `mapstructure:"elevated_roles"` // may read any attempt
}

type XP struct {
	Pass int `mapstructure:"pass"`
	Fail int `mapstructure:"fail"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads YAML config from path (optional) and applies environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("quiz.ttl", "10m")
	v.SetDefault("quiz.fixtures_path", "config/quizzes.yaml")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.elevated_roles", []string{"admin"})
	v.SetDefault("xp.pass", 100)
	v.SetDefault("xp.fail", 10)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3006"})
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	if c.XP.Pass < 0 || c.XP.Fail < 0 {
		return fmt.Errorf("xp rewards must be non-negative (pass=%d, fail=%d)", c.XP.Pass, c.XP.Fail)
	}
	if c.XP.Fail > c.XP.Pass {
		return fmt.Errorf("xp.fail (%d) must not exceed xp.pass (%d)", c.XP.Fail, c.XP.Pass)
	}
	return nil
}

// RequireAuth reports a missing JWT secret; only the server needs one.
func (c Config) RequireAuth() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

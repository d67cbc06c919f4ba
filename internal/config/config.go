package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	AccessSecret string
}

// DispatchConfig holds the operational knobs of matching and cancellation.
// Pricing knobs live in the pricing_configs table instead; these only change
// with a deploy.
type DispatchConfig struct {
	AutoAssignRadiusKM float64
	TripFee            float64
	LateCancelFee      float64
	LastMinuteFee      float64
	MaxReschedules     int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Dispatch    DispatchConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Dispatch: DispatchConfig{
			AutoAssignRadiusKM: v.GetFloat64("AUTO_ASSIGN_RADIUS_KM"),
			TripFee:            v.GetFloat64("TRIP_FEE"),
			LateCancelFee:      v.GetFloat64("LATE_CANCEL_FEE"),
			LastMinuteFee:      v.GetFloat64("LAST_MINUTE_CANCEL_FEE"),
			MaxReschedules:     v.GetInt("MAX_RESCHEDULES"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "postgres"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "umuve"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 20
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.Dispatch.AutoAssignRadiusKM == 0 {
		cfg.Dispatch.AutoAssignRadiusKM = 50
	}
	if cfg.Dispatch.TripFee == 0 {
		cfg.Dispatch.TripFee = 50
	}
	if cfg.Dispatch.LateCancelFee == 0 {
		cfg.Dispatch.LateCancelFee = 25
	}
	if cfg.Dispatch.LastMinuteFee == 0 {
		cfg.Dispatch.LastMinuteFee = 50
	}
	if cfg.Dispatch.MaxReschedules == 0 {
		cfg.Dispatch.MaxReschedules = 3
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.DB.Password == "" && cfg.Environment != "development" {
		return fmt.Errorf("DB_PASSWORD is required outside development")
	}
	return nil
}

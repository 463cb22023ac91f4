package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Locker   LockerConfig   `yaml:"locker"`
	Admin    AdminConfig    `yaml:"admin"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"events_topic"`
	GroupID     string   `yaml:"group_id"`
}

type LockerConfig struct {
	PoolSize             int `yaml:"pool_size"`
	GridCacheTTLSeconds  int `yaml:"grid_cache_ttl_seconds"`
	LookupFailLimit      int `yaml:"lookup_fail_limit"`
	LookupFailWindowSecs int `yaml:"lookup_fail_window_seconds"`
}

type AdminConfig struct {
	Token string `yaml:"token"`
	Email string `yaml:"email"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Locker.PoolSize == 0 {
		cfg.Locker.PoolSize = 50
	}
	if cfg.Locker.LookupFailLimit == 0 {
		cfg.Locker.LookupFailLimit = 10
	}
	if cfg.Locker.LookupFailWindowSecs == 0 {
		cfg.Locker.LookupFailWindowSecs = 600
	}

	return &cfg, nil
}

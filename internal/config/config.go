// Package config loads service configuration from the environment with an
// optional yaml file override.
package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	mapping "opcmap/internal/mapping/domain"
)

// Config defines service configuration.
type Config struct {
	HTTPAddr          string                `yaml:"http_addr"`
	DatabaseURL       string                `yaml:"database_url"`
	TenantID          string                `yaml:"tenant_id"`
	JWTSecret         string                `yaml:"jwt_secret"`
	DefaultPLCOrdinal int                   `yaml:"default_plc_ordinal"`
	DefaultPLC        mapping.PLCDescriptor `yaml:"default_plc"`
}

// Load builds the configuration from env, then applies the yaml file named
// by OPCMAP_CONFIG when set. Required values fail fast.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		TenantID:          getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		DefaultPLCOrdinal: getenvIntDefault("DEFAULT_PLC_ORDINAL", 1),
		DefaultPLC: mapping.PLCDescriptor{
			Name:     getenvDefault("PLC_NAME", "plc-1"),
			IP:       getenvDefault("PLC_IP", ""),
			OpcuaURL: getenvDefault("OPCUA_URL", ""),
		},
	}

	if path := os.Getenv("OPCMAP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	if cfg.DefaultPLCOrdinal < 1 {
		return cfg, errors.New("config: default plc ordinal must be positive")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"fmt"
	"net"
)

func (cfg *Config) ListenAddr() string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}

func (cfg *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

func (cfg *NATSConfig) Address() string {
	return fmt.Sprintf("nats://%s:%d", cfg.Host, cfg.Port)
}

func (cfg *APIConfig) RejectUnknownFields() bool {
	return cfg.UnknownFields != UnknownFieldsIgnore
}

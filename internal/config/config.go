package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		TCPAddr  string `yaml:"tcp_addr"`
		UDPAddr  string `yaml:"udp_addr"`
		HTTPAddr string `yaml:"http_addr"`
	} `yaml:"server"`
	Quiz struct {
		Bank           string `yaml:"bank"`
		File           string `yaml:"file"`
		TTL            string `yaml:"ttl"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxQuestions   int    `yaml:"max_questions"`
		MaxPlayers     int    `yaml:"max_players"`
	} `yaml:"quiz"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Default is the configuration used when no file is present. TCP and UDP
// share a port number; they are distinct protocol namespaces.
func Default() Config {
	cfg := Config{}
	cfg.Server.TCPAddr = ":8888"
	cfg.Server.UDPAddr = ":8888"
	cfg.Server.HTTPAddr = ":8080"
	cfg.Quiz.Bank = "default"
	return cfg
}

// Load reads YAML config from path. A missing file yields the defaults so
// the server runs with no configuration at all.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DurationOr parses a duration string or returns the fallback if empty or
// unparseable.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

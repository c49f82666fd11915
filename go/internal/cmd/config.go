package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Coordinator struct {
		URL       string `yaml:"url"`
		RoomID    string `yaml:"room_id"`
		Transport string `yaml:"transport"` // "websocket" or "nats"
		NATSURL   string `yaml:"nats_url"`
	} `yaml:"coordinator"`
	Sync struct {
		DriftThresholdSec   float64 `yaml:"drift_threshold_sec"`
		ApplySettleMs       int     `yaml:"apply_settle_ms"`
		LocalActionWindowMs int     `yaml:"local_action_window_ms"`
	} `yaml:"sync"`
	Player struct {
		ContainerID    string `yaml:"container_id"`
		RetryBackoffMs int    `yaml:"retry_backoff_ms"`
		MaxAttempts    int    `yaml:"max_attempts"`
	} `yaml:"player"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	var config Config
	config.Coordinator.URL = "ws://localhost:8080"
	config.Coordinator.RoomID = "lobby"
	config.Coordinator.Transport = "websocket"
	config.Coordinator.NATSURL = "nats://localhost:4222"
	config.Sync.DriftThresholdSec = 0.35
	config.Sync.ApplySettleMs = 200
	config.Sync.LocalActionWindowMs = 100
	config.Player.ContainerID = "player"
	config.Player.RetryBackoffMs = 500
	config.Player.MaxAttempts = 10
	config.Status.Addr = ":8091"
	config.LogLevel = "info"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// applyEnvOverrides lets environment variables override the file values.
func (c *Config) applyEnvOverrides() {
	c.Coordinator.URL = getEnv("LOCKSTEP_COORDINATOR_URL", c.Coordinator.URL)
	c.Coordinator.RoomID = getEnv("LOCKSTEP_ROOM_ID", c.Coordinator.RoomID)
	c.Coordinator.Transport = getEnv("LOCKSTEP_TRANSPORT", c.Coordinator.Transport)
	c.Coordinator.NATSURL = getEnv("NATS_URL", c.Coordinator.NATSURL)
	c.Sync.DriftThresholdSec = getEnvAsFloat("LOCKSTEP_DRIFT_THRESHOLD_SEC", c.Sync.DriftThresholdSec)
	c.Sync.ApplySettleMs = getEnvAsInt("LOCKSTEP_APPLY_SETTLE_MS", c.Sync.ApplySettleMs)
	c.Sync.LocalActionWindowMs = getEnvAsInt("LOCKSTEP_LOCAL_ACTION_WINDOW_MS", c.Sync.LocalActionWindowMs)
	c.Status.Addr = getEnv("LOCKSTEP_STATUS_ADDR", c.Status.Addr)
	c.LogLevel = getEnv("LOCKSTEP_LOG_LEVEL", c.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Providers accepted in the configuration. "raw" inputs are JSON arrays of
// item blocks.
const (
	providerRaw       = "raw"
	providerAnthropic = "anthropic"
	providerOpenAI    = "openai"

	modeComplete = "complete"
	modeStream   = "stream"
)

type (
	// config is the YAML configuration of the demo.
	config struct {
		// Provider selects the payload decoder: raw, anthropic or openai.
		Provider string `yaml:"provider"`
		// Mode is "complete" for a full response document or "stream" for a
		// server-sent events capture. Defaults to complete.
		Mode string `yaml:"mode"`
		// Input is the path of the provider payload.
		Input string `yaml:"input"`
		// Agent is the fully qualified agent identifier reported to hooks.
		Agent string `yaml:"agent"`
		// RunID tags every lifecycle event of the run.
		RunID string `yaml:"run_id"`
		// OutputSchema is the path of a JSON Schema the final message must
		// satisfy.
		OutputSchema string `yaml:"output_schema"`
		// Debug enables debug logs.
		Debug bool `yaml:"debug"`
		// Redis enables publishing lifecycle events to Pulse streams.
		Redis *redisConfig `yaml:"redis"`
		// Mongo enables persisting lifecycle events to MongoDB.
		Mongo *mongoConfig `yaml:"mongo"`
	}

	redisConfig struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		MaxLen   int    `yaml:"max_len"`
	}

	mongoConfig struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	}
)

// loadConfig reads and validates the configuration file at path.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *config) validate() error {
	switch c.Provider {
	case providerRaw, providerAnthropic, providerOpenAI:
	case "":
		return errors.New("provider is required")
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	switch c.Mode {
	case "":
		c.Mode = modeComplete
	case modeComplete:
	case modeStream:
		if c.Provider == providerRaw {
			return errors.New("raw inputs cannot be streamed")
		}
	default:
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}
	if c.Input == "" {
		return errors.New("input is required")
	}
	if c.Agent == "" {
		c.Agent = "demo.agent"
	}
	if c.RunID == "" {
		c.RunID = "demo-run"
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Mongo != nil && (c.Mongo.URI == "" || c.Mongo.Database == "") {
		return errors.New("mongo.uri and mongo.database are required")
	}
	return nil
}

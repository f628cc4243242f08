package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is h2poolctl's on-disk configuration, loaded with yaml.v3.
type Config struct {
	Target struct {
		Addr       string `yaml:"addr"`
		ServerName string `yaml:"serverName"`
	} `yaml:"target"`

	Pool struct {
		AssumeMaxConcurrentStreams int `yaml:"assumeMaxConcurrentStreams"`
	} `yaml:"pool"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	// ReportSchedule is a robfig/cron/v3 expression controlling how often
	// a pool-occupancy snapshot is logged.
	ReportSchedule string `yaml:"reportSchedule"`
}

func defaultConfig() Config {
	var c Config
	c.Pool.AssumeMaxConcurrentStreams = 100
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.ReportSchedule = "@every 30s"
	return c
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

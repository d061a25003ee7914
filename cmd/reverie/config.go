package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWalkerHost is the default host for the walker service
	DefaultWalkerHost = "localhost"
	// DefaultWalkerPort is the default port for the walker service
	DefaultWalkerPort = 12220
)

// CLIConfig holds the optional reverie.yaml settings. Every field has a
// sensible zero default, so a missing or partial file is never an error.
type CLIConfig struct {
	ServerURL   string `yaml:"server_url"`
	User        string `yaml:"user"`
	Character   string `yaml:"character"`
	Personality string `yaml:"personality"`
}

// loadCLIConfig reads the first reverie.yaml it finds. Search order is
// $REVERIE_CONFIG, ./reverie.yaml, then ~/.reverie/reverie.yaml. A file
// that exists but does not parse is reported and otherwise ignored.
func loadCLIConfig() CLIConfig {
	var cfg CLIConfig
	for _, path := range configSearchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring malformed config %s: %v\n", path, err)
			return CLIConfig{}
		}
		return cfg
	}
	return cfg
}

func configSearchPaths() []string {
	paths := []string{}
	if env := os.Getenv("REVERIE_CONFIG"); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, "reverie.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".reverie", "reverie.yaml"))
	}
	return paths
}

// defaultConfigPath is where `reverie init` writes when --path is not given.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reverie.yaml"
	}
	return filepath.Join(home, ".reverie", "reverie.yaml")
}

// serverBaseURL resolves the walker service URL. Precedence: --server flag,
// REVERIE_SERVER_URL, reverie.yaml, then the compiled default.
func serverBaseURL() string {
	if serverFlag != "" {
		return serverFlag
	}
	if env := os.Getenv("REVERIE_SERVER_URL"); env != "" {
		return env
	}
	if cliConfig.ServerURL != "" {
		return cliConfig.ServerURL
	}
	return fmt.Sprintf("http://%s:%d", DefaultWalkerHost, DefaultWalkerPort)
}

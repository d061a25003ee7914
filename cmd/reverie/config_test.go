// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// resetCLIState saves and restores the package globals the resolver reads.
func resetCLIState(t *testing.T) {
	t.Helper()
	origFlag := serverFlag
	origConfig := cliConfig
	t.Cleanup(func() {
		serverFlag = origFlag
		cliConfig = origConfig
	})
	serverFlag = ""
	cliConfig = CLIConfig{}
	t.Setenv("REVERIE_SERVER_URL", "")
}

func TestServerBaseURL_FlagWins(t *testing.T) {
	resetCLIState(t)
	serverFlag = "http://flag:1111"
	t.Setenv("REVERIE_SERVER_URL", "http://env:2222")
	cliConfig.ServerURL = "http://config:3333"

	if got := serverBaseURL(); got != "http://flag:1111" {
		t.Errorf("Expected flag to win, got %s", got)
	}
}

func TestServerBaseURL_EnvBeatsConfig(t *testing.T) {
	resetCLIState(t)
	t.Setenv("REVERIE_SERVER_URL", "http://env:2222")
	cliConfig.ServerURL = "http://config:3333"

	if got := serverBaseURL(); got != "http://env:2222" {
		t.Errorf("Expected env to beat config, got %s", got)
	}
}

func TestServerBaseURL_ConfigBeatsDefault(t *testing.T) {
	resetCLIState(t)
	cliConfig.ServerURL = "http://config:3333"

	if got := serverBaseURL(); got != "http://config:3333" {
		t.Errorf("Expected config value, got %s", got)
	}
}

func TestServerBaseURL_Default(t *testing.T) {
	resetCLIState(t)

	if got := serverBaseURL(); got != "http://localhost:12220" {
		t.Errorf("Expected compiled default, got %s", got)
	}
}

func TestLoadCLIConfig_FromEnvPath(t *testing.T) {
	resetCLIState(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "reverie.yaml")
	content := "server_url: http://walker:9999\nuser: ada\ncharacter: Luna\npersonality: minimal\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("REVERIE_CONFIG", path)

	cfg := loadCLIConfig()
	if cfg.ServerURL != "http://walker:9999" {
		t.Errorf("Expected server_url from file, got %s", cfg.ServerURL)
	}
	if cfg.User != "ada" || cfg.Character != "Luna" {
		t.Errorf("Expected user/character from file, got %s/%s", cfg.User, cfg.Character)
	}
	if cfg.Personality != "minimal" {
		t.Errorf("Expected personality from file, got %s", cfg.Personality)
	}
}

func TestLoadCLIConfig_MalformedIgnored(t *testing.T) {
	resetCLIState(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "reverie.yaml")
	if err := os.WriteFile(path, []byte("server_url: [not: closed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("REVERIE_CONFIG", path)

	cfg := loadCLIConfig()
	if cfg.ServerURL != "" {
		t.Errorf("Expected zero config for malformed file, got %+v", cfg)
	}
}

func TestLoadCLIConfig_Missing(t *testing.T) {
	resetCLIState(t)
	// Point both the env path and HOME somewhere empty so no real config leaks in.
	t.Setenv("REVERIE_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	t.Setenv("HOME", t.TempDir())

	cfg := loadCLIConfig()
	if cfg != (CLIConfig{}) {
		t.Errorf("Expected zero config when nothing exists, got %+v", cfg)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/walker")
	got := defaultConfigPath()
	want := filepath.Join("/home/walker", ".reverie", "reverie.yaml")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestWriteCLIConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "reverie.yaml")
	cfg := CLIConfig{
		ServerURL:   "http://walker:12220",
		User:        "ada",
		Character:   "Luna",
		Personality: "full",
	}
	if err := writeCLIConfig(path, cfg); err != nil {
		t.Fatalf("writeCLIConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written config: %v", err)
	}
	var loaded CLIConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Written config does not parse: %v", err)
	}
	if loaded != cfg {
		t.Errorf("Round trip mismatch: wrote %+v, read %+v", cfg, loaded)
	}
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:12220", false},
		{"https", "https://walker.example.com", false},
		{"no scheme", "localhost:12220", true},
		{"wrong scheme", "ftp://walker", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServerURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateServerURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestWsWalkURL(t *testing.T) {
	resetCLIState(t)
	tests := []struct {
		name string
		base string
		want string
	}{
		{"http", "http://localhost:12220", "ws://localhost:12220/v1/walk/stream"},
		{"https", "https://walker.example.com", "wss://walker.example.com/v1/walk/stream"},
		{"trailing slash", "http://localhost:12220/", "ws://localhost:12220/v1/walk/stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serverFlag = tt.base
			if got := wsWalkURL(); got != tt.want {
				t.Errorf("wsWalkURL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConfigSearchPaths_EnvFirst(t *testing.T) {
	t.Setenv("REVERIE_CONFIG", "/etc/reverie/reverie.yaml")
	paths := configSearchPaths()
	if len(paths) == 0 || paths[0] != "/etc/reverie/reverie.yaml" {
		t.Errorf("Expected env path first, got %v", paths)
	}
	foundLocal := false
	for _, p := range paths {
		if p == "reverie.yaml" {
			foundLocal = true
		}
	}
	if !foundLocal {
		t.Error("Expected ./reverie.yaml in search paths")
	}
	if last := paths[len(paths)-1]; !strings.HasSuffix(last, filepath.Join(".reverie", "reverie.yaml")) {
		t.Errorf("Expected home config last, got %s", last)
	}
}

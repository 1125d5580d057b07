package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName           = "followgraph"
	defaultConfigFile = ".followgraph.yaml"

	envAccounts = "FOLLOWGRAPH_ACCOUNTS"
	envProxy    = "FOLLOWGRAPH_PROXY"
)

// ErrConfigNotFound is returned when an explicitly named config file is missing.
var ErrConfigNotFound = errors.New("configuration file not found")

// fileConfig is the YAML configuration file.
//
//	accounts: "user:pass,user2:pass2:auth_token:ct0"
//	proxy: socks5://127.0.0.1:1080
//	session_dir: /var/lib/followgraph
//	max_followers: 500
//	traversal:
//	  max_depth: 1
//	  delay: 2s
//	  cooldown: 10s
//	  retries: 3
type fileConfig struct {
	Accounts     string `yaml:"accounts"`
	Proxy        string `yaml:"proxy"`
	SessionDir   string `yaml:"session_dir"`
	MaxFollowers int    `yaml:"max_followers"`
	Traversal    struct {
		MaxDepth *int          `yaml:"max_depth"`
		Delay    time.Duration `yaml:"delay"`
		Cooldown time.Duration `yaml:"cooldown"`
		Retries  int           `yaml:"retries"`
	} `yaml:"traversal"`
}

// xdgConfigFile is the config file under the XDG config directory.
func xdgConfigFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// findConfigFile returns the first existing config file: the explicit path,
// then ./.followgraph.yaml, then the XDG config file. It returns "" when none
// exists.
func findConfigFile(explicit string) string {
	candidates := []string{explicit}
	if explicit == "" {
		candidates = []string{defaultConfigFile, xdgConfigFile()}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadConfigFile reads and decodes a YAML config file.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

// resolveConfigFile finds and loads the config file. A missing file is an
// error only when it was named explicitly.
func resolveConfigFile(explicit string) (*fileConfig, error) {
	path := findConfigFile(explicit)
	if path == "" {
		if explicit != "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		return &fileConfig{}, nil
	}
	return loadConfigFile(path)
}

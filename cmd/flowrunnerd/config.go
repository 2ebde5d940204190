package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// DaemonConfig is flowrunnerd's own startup configuration — separate from
// the engine's Config, which arrives later over the /start endpoint.
type DaemonConfig struct {
	ListenAddr string         `toml:"listen_addr"`
	FlowFile   string         `toml:"flow_file"`
	Engine     map[string]any `toml:"engine"`
}

// LoadDaemonConfig reads and decodes a flowrunnerd TOML config file.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	var cfg DaemonConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("flowrunnerd: decoding config %s: %w", path, err)
	}
	return &cfg, nil
}

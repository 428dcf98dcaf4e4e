package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ServerConfig holds the process configuration. State is otherwise fully
// in-memory for the life of a session; this file is the only on-disk input.
type ServerConfig struct {
	// TCPAddr is the listen address for the length-prefixed frame transport.
	TCPAddr string `json:"tcp_addr"`
	// WSAddr is the listen address for the WebSocket transport.
	WSAddr string `json:"ws_addr"`
	// MinPlayers is the fewest seated players a round may start with.
	MinPlayers int `json:"min_players"`
	// MaxPlayers caps the table size.
	MaxPlayers int `json:"max_players"`
	// WithJokers adds two jokers per deck.
	WithJokers bool `json:"with_jokers"`
}

var (
	cfg      *ServerConfig
	loadOnce sync.Once
	loadErr  error
)

func defaults() *ServerConfig {
	return &ServerConfig{
		TCPAddr:    ":7316",
		WSAddr:     ":7317",
		MinPlayers: 2,
		MaxPlayers: 8,
		WithJokers: true,
	}
}

// Load reads the server configuration from the given path, once. A missing
// file is not an error; defaults apply, with env-var address overrides.
func Load(path string) error {
	loadOnce.Do(func() {
		c := defaults()
		if data, err := os.ReadFile(path); err == nil {
			if err := json.Unmarshal(data, c); err != nil {
				loadErr = fmt.Errorf("failed to unmarshal server config: %w", err)
				return
			}
		} else if !os.IsNotExist(err) {
			loadErr = fmt.Errorf("failed to read server config: %w", err)
			return
		}

		if addr, ok := os.LookupEnv("SHENGJI_TCP_ADDR"); ok {
			c.TCPAddr = addr
		}
		if addr, ok := os.LookupEnv("SHENGJI_WS_ADDR"); ok {
			c.WSAddr = addr
		}

		if c.MinPlayers < 2 {
			c.MinPlayers = 2
		}
		if c.MaxPlayers > 8 {
			c.MaxPlayers = 8
		}
		cfg = c
	})
	return loadErr
}

// Get returns the loaded configuration, or defaults if Load was never called.
func Get() *ServerConfig {
	if cfg == nil {
		return defaults()
	}
	return cfg
}

// Package config loads the daemon's runtime configuration: the knobs
// govd needs to start listening and find its data directory, as opposed
// to the one-time genesis/bootstrap document handled by package genesis.
package config

import (
	"encoding/hex"
	"os"

	"govchain/crypto"

	"github.com/BurntSushi/toml"
)

// Config holds the runtime knobs for the govd daemon.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	QueryAddress  string `toml:"QueryAddress"`
	DataDir       string `toml:"DataDir"`
	GenesisPath   string `toml:"GenesisPath"`
	AuthorityKey  string `toml:"AuthorityKey"`
	Environment   string `toml:"Environment"`
}

// Load reads the configuration at path, creating a default file there if
// none exists yet. An AuthorityKey is minted and persisted the first time
// a config file is written, mirroring the teacher's validator-key
// bootstrap.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.AuthorityKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.AuthorityKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createDefault writes and returns a fresh default configuration.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress: ":7001",
		QueryAddress:  ":8081",
		DataDir:       "./gov-data",
		GenesisPath:   "./genesis.yaml",
		AuthorityKey:  hex.EncodeToString(key.Bytes()),
		Environment:   "development",
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

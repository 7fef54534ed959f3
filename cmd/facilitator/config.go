package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries everything both subcommands need. Values from a config
// file override the defaults, and explicit flags override both.
type Config struct {
	// Aggregation, BatchID and Date identify the batch being generated
	// or processed. Date uses the storage layout, YYYY/MM/DD/HH/MM.
	Aggregation string `yaml:"aggregation"`
	BatchID     string `yaml:"batch_id"`
	Date        string `yaml:"date"`

	// Role selects which processor batch-intake runs: first, second or
	// both.
	Role string `yaml:"role"`

	Ingestor IngestorConfig `yaml:"ingestor"`
	First    RoleConfig     `yaml:"first"`
	Second   RoleConfig     `yaml:"second"`
	Sample   SampleConfig   `yaml:"sample"`
}

// IngestorConfig holds the ingestion server's key material: the
// verification key batch-intake authenticates input with, and the
// signing key sample generation signs with.
type IngestorConfig struct {
	VerificationKey string `yaml:"verification_key"`
	SigningKey      string `yaml:"signing_key"`
}

// RoleConfig describes one share processor's transports and keys.
type RoleConfig struct {
	// Ingestion and Validation name storage as a local directory or an
	// s3://bucket URL.
	Ingestion  string `yaml:"ingestion"`
	Validation string `yaml:"validation"`

	// PacketDecryptionKey opens the payloads encrypted to this
	// processor. Sample generation encrypts to its public half.
	PacketDecryptionKey string `yaml:"packet_decryption_key"`

	// BatchSigningKey signs this processor's validation batches. A key
	// is generated and printed when empty.
	BatchSigningKey string `yaml:"batch_signing_key"`
}

// SampleConfig controls generate-ingestion-sample.
type SampleConfig struct {
	Dimension   int     `yaml:"dimension"`
	PacketCount int     `yaml:"packet_count"`
	Epsilon     float64 `yaml:"epsilon"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Aggregation: "fake-aggregation",
		Role:        "both",
		Sample: SampleConfig{
			Dimension:   10,
			PacketCount: 100,
			Epsilon:     0.11,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

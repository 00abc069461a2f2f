// Package config loads and resolves extraction settings, following the
// JSON-file-plus-CLI-flag-override pattern of the teacher's own
// internal/config/config.go.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Config holds all configurable extraction settings.
type Config struct {
	Prefix string `json:"prefix"` // output root directory

	RawOnly        bool `json:"raw_only"`
	DecodeTextures bool `json:"decode_textures"`
	DecodeMeshes   bool `json:"decode_meshes"`
	DecodeActors   bool `json:"decode_actors"`
	Verbose        bool `json:"verbose"`

	Workers int `json:"workers"`
}

// Load reads a JSON config file and returns Config. Fields not set in the
// file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings. Each
// toggle accepts a negation form (`--no-X`) at the flag-parsing layer in
// cmd/cvrextract; the *Set fields distinguish "flag given" from "flag
// defaulted to its zero value" so Resolve knows whether to override.
type Flags struct {
	Prefix  string
	Workers int

	RawOnlySet        bool
	RawOnly           bool
	DecodeTexturesSet bool
	DecodeTextures    bool
	DecodeMeshesSet   bool
	DecodeMeshes      bool
	DecodeActorsSet   bool
	DecodeActors      bool
	Verbose           bool
}

// Resolve fills in any empty fields with defaults. CLI flags take
// priority over the config file; the config file takes priority over the
// built-in defaults below.
func (c *Config) Resolve(flags Flags) {
	if flags.Prefix != "" {
		c.Prefix = flags.Prefix
	}
	if c.Prefix == "" {
		c.Prefix = "contents"
	}

	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	if flags.RawOnlySet {
		c.RawOnly = flags.RawOnly
	}

	if flags.DecodeTexturesSet {
		c.DecodeTextures = flags.DecodeTextures
	} else if !c.RawOnly {
		c.DecodeTextures = true
	}
	if flags.DecodeMeshesSet {
		c.DecodeMeshes = flags.DecodeMeshes
	} else if !c.RawOnly {
		c.DecodeMeshes = true
	}
	if flags.DecodeActorsSet {
		c.DecodeActors = flags.DecodeActors
	} else if !c.RawOnly {
		c.DecodeActors = true
	}
	if flags.Verbose {
		c.Verbose = true
	}

	if c.RawOnly {
		c.DecodeTextures, c.DecodeMeshes, c.DecodeActors = false, false, false
	}
}

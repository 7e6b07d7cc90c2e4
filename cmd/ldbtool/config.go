package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/openrelayxyz/cardinal-ldb"
)

// Config is the on-disk form of ldb.Options. Unset fields keep the defaults.
type Config struct {
	CreateIfMissing      *bool  `toml:"create-if-missing,omitempty"`
	ErrorIfExists        bool   `toml:"error-if-exists,omitempty"`
	ParanoidChecks       bool   `toml:"paranoid-checks,omitempty"`
	WriteBufferSize      int    `toml:"write-buffer-size,omitempty"`
	MaxOpenFiles         int    `toml:"max-open-files,omitempty"`
	BlockSize            int    `toml:"block-size,omitempty"`
	BlockRestartInterval int    `toml:"block-restart-interval,omitempty"`
	MaxFileSize          int    `toml:"max-file-size,omitempty"`
	Compression          string `toml:"compression,omitempty"`
	CacheSize            int64  `toml:"cache-size,omitempty"`
}

func loadConfig(path string) (*Config, error) {
	c := &Config{}
	if path == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("read config %v: %w", path, err)
	}
	return c, nil
}

func parseCompression(s string) (ldb.Compression, error) {
	switch strings.ToLower(s) {
	case "none", "no":
		return ldb.NoCompression, nil
	case "snappy":
		return ldb.SnappyCompression, nil
	case "zstd":
		return ldb.ZstdCompression, nil
	}
	return ldb.CompressionUnspecified, fmt.Errorf("unknown compression %q", s)
}

// Options applies c on top of ldb.DefaultOptions.
func (c *Config) Options() (*ldb.Options, error) {
	opts := ldb.DefaultOptions()
	if c.CreateIfMissing != nil {
		opts.CreateIfMissing = *c.CreateIfMissing
	}
	opts.ErrorIfExists = c.ErrorIfExists
	opts.ParanoidChecks = c.ParanoidChecks
	if c.WriteBufferSize > 0 {
		opts.WriteBufferSize = c.WriteBufferSize
	}
	if c.MaxOpenFiles > 0 {
		opts.MaxOpenFiles = c.MaxOpenFiles
	}
	if c.BlockSize > 0 {
		opts.BlockSize = c.BlockSize
	}
	if c.BlockRestartInterval > 0 {
		opts.BlockRestartInterval = c.BlockRestartInterval
	}
	if c.MaxFileSize > 0 {
		opts.MaxFileSize = c.MaxFileSize
	}
	if c.CacheSize > 0 {
		opts.CacheSize = c.CacheSize
	}
	if c.Compression != "" {
		compression, err := parseCompression(c.Compression)
		if err != nil {
			return nil, err
		}
		opts.Compression = compression
	}
	return opts, nil
}

// Package config handles ritedump.toml configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"ritedump/internal/rite"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = "ritedump.toml"

// Config represents a ritedump.toml file. Field names double as the TOML keys.
type Config struct {
	StrictChecksum bool   `toml:"strict_checksum" json:"strict_checksum" jsonschema:"title=Strict checksum,description=Reject images whose stored CRC or size field is wrong"`
	Revision       int    `toml:"revision" json:"revision" jsonschema:"title=Revision,description=Container revision: 0 detects from the header,enum=0,enum=1,enum=2"`
	MaxDepth       int    `toml:"max_depth" json:"max_depth" jsonschema:"title=Maximum depth,description=Deepest record nesting accepted before the image is rejected"`
	Color          string `toml:"color" json:"color" jsonschema:"title=Color,description=Highlight disassembly,enum=auto,enum=always,enum=never"`
	Parallel       int    `toml:"parallel" json:"parallel" jsonschema:"title=Parallel,description=Records rendered concurrently; 1 renders sequentially"`

	ShowHeader   bool `toml:"show_header" json:"show_header" jsonschema:"title=Show header"`
	ShowSections bool `toml:"show_sections" json:"show_sections" jsonschema:"title=Show sections"`
	ShowLvar     bool `toml:"show_lvar" json:"show_lvar" jsonschema:"title=Show local variables"`
	ShowPool     bool `toml:"show_pool" json:"show_pool" jsonschema:"title=Show pool,description=List each record's literal pool"`
	ShowSymbols  bool `toml:"show_symbols" json:"show_symbols" jsonschema:"title=Show symbols,description=List each record's symbol table"`

	XXTEA XXTEA `toml:"xxtea" json:"xxtea" jsonschema:"title=XXTEA,description=Decryption of protected images"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `toml:"-" json:"-"`
}

type XXTEA struct {
	Key       string `toml:"key" json:"key" jsonschema:"title=Key,description=XXTEA key; empty leaves images untouched"`
	Signature string `toml:"signature" json:"signature" jsonschema:"title=Signature,description=Prefix stripped before decryption"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MaxDepth:     rite.DefaultMaxDepth,
		Color:        "auto",
		Parallel:     1,
		ShowHeader:   true,
		ShowSections: true,
		ShowLvar:     true,
	}
}

// Load reads path over the defaults. An empty path tries DefaultFile and
// falls back to the defaults when it does not exist.
func Load(path string) (*Config, error) {
	c := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Validate checks value ranges that TOML typing cannot express.
func (c *Config) Validate() error {
	if c.Revision < 0 || c.Revision > 2 {
		return fmt.Errorf("revision must be 0, 1 or 2, got %d", c.Revision)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	return nil
}

// DecodeOptions returns the decoder options this configuration selects.
func (c *Config) DecodeOptions() rite.Options {
	return rite.Options{
		Strict:   c.StrictChecksum,
		Revision: rite.Revision(c.Revision),
		MaxDepth: c.MaxDepth,
	}
}

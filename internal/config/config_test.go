package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ritedump/internal/rite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ritedump.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
strict_checksum = true
revision = 1
max_depth = 16
color = "never"
parallel = 4
show_pool = true
show_lvar = false

[xxtea]
key = "secret"
signature = "XXTEA"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.StrictChecksum || c.Revision != 1 || c.MaxDepth != 16 || c.Color != "never" || c.Parallel != 4 {
		t.Errorf("scalar keys = %+v", c)
	}
	if !c.ShowPool || c.ShowLvar || !c.ShowHeader || c.ShowSymbols {
		t.Errorf("show keys = %+v", c)
	}
	if c.XXTEA.Key != "secret" || c.XXTEA.Signature != "XXTEA" {
		t.Errorf("xxtea = %+v", c.XXTEA)
	}
	if c.Path != path {
		t.Errorf("Path = %q", c.Path)
	}

	opts := c.DecodeOptions()
	if !opts.Strict || opts.Revision != rite.Rev1 || opts.MaxDepth != 16 {
		t.Errorf("DecodeOptions() = %+v", opts)
	}
}

func TestLoadDefaultFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Path != "" || c.MaxDepth != rite.DefaultMaxDepth || !c.ShowHeader {
		t.Errorf("defaults = %+v", c)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "revision = ", "parse error"},
		{"revision", "revision = 3", "revision must be"},
		{"depth", "max_depth = 0", "max_depth must be positive"},
		{"color", `color = "sometimes"`, "color must be"},
		{"parallel", "parallel = 0", "parallel must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("an explicit missing file should fail")
	}
}

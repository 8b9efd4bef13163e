package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"exactly12chr", "************"},
		{"sk-abcdefghijklmnop", "sk-a***********mnop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskSecret(tt.in), tt.in)
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.env")

	values, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, values)

	values["MEEPOO_BASE_URL"] = "http://localhost:11434"
	values["MEEPOO_API_KEY"] = "secret value with spaces"
	require.NoError(t, saveConfigFile(path, values))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestPrintConfig(t *testing.T) {
	t.Setenv("MEEPOO_MODEL", "llama3")
	t.Setenv("MEEPOO_API_KEY", "")

	var buf bytes.Buffer
	printConfig(&buf, "/tmp/config.env", map[string]string{
		"MEEPOO_API_KEY": "sk-abcdefghijklmnop",
		"MEEPOO_MODEL":   "ignored-because-env-wins",
		"SOMETHING_ELSE": "x",
	})
	out := buf.String()

	assert.Contains(t, out, "Config file: /tmp/config.env")
	assert.Contains(t, out, "sk-a***********mnop (from config file)")
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
	assert.Contains(t, out, "llama3 (from env)")
	assert.NotContains(t, out, "ignored-because-env-wins")
	assert.Contains(t, out, "Ignored keys in config file: SOMETHING_ELSE")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "feat: add x", firstLine("feat: add x\n\nbody", 60))
	assert.Equal(t, "abcdefg...", firstLine("abcdefghijklmnop", 10))
	assert.Equal(t, "short", firstLine("short", 10))
}

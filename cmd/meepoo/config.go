package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jxucoder/meepoo/internal/config"
)

// configKey describes a single configuration value.
type configKey struct {
	Key    string
	Desc   string
	Secret bool
}

// allConfigKeys lists every configurable value in display order.
var allConfigKeys = []configKey{
	{"MEEPOO_BASE_URL", "Server root, e.g. http://localhost:1234", false},
	{"MEEPOO_API_KEY", "Bearer token for the model server", true},
	{"MEEPOO_MODEL", "Model name", false},
	{"MEEPOO_CONCURRENCY", "Parallel per-file requests", false},
	{"MEEPOO_TIMEOUT", "Deadline per command, e.g. 2m", false},
	{"MEEPOO_LOG_LEVEL", "trace, debug, info, warn, error", false},
	{"MEEPOO_HISTORY", "Record generations (true/false)", false},
	{"MEEPOO_ADDR", "Listen address for serve", false},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage meepoo configuration",
	Long: `Manage meepoo configuration.

Configuration is stored in ~/.meepoo/config.env and can be overridden
by environment variables and flags.

  meepoo config set KEY VALUE      Set a single config value
  meepoo config unset KEY          Remove a value
  meepoo config show               Show current configuration
  meepoo config path               Print config file path`,
	// Reports where values come from, so the file must not be merged into
	// the environment first.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a config value",
	Long: `Set a single configuration value. Example:
  meepoo config set MEEPOO_BASE_URL http://localhost:11434`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove a config value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display all configured values. Secrets are masked.",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.FilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfigFile reads the config file. A missing file is an empty config.
func loadConfigFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// saveConfigFile writes values to path, readable by the owner only.
func saveConfigFile(path string, values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

func findKey(name string) (configKey, bool) {
	for _, ck := range allConfigKeys {
		if ck.Key == name {
			return ck, true
		}
	}
	return configKey{Key: name}, false
}

// maskSecret masks a secret string, showing only the first 4 and last 4 characters.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func displayValue(ck configKey, v string) string {
	if ck.Secret {
		return maskSecret(v)
	}
	return v
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.TrimSpace(args[0]), args[1]
	ck, known := findKey(key)
	if !known {
		return fmt.Errorf("unknown key %q (see meepoo config show)", key)
	}

	path := config.FilePath()
	values, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	values[key] = value
	if err := saveConfigFile(path, values); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, displayValue(ck, value))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])
	path := config.FilePath()
	values, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not set in %s\n", key, path)
		return nil
	}
	delete(values, key)
	if err := saveConfigFile(path, values); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", key)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path := config.FilePath()
	values, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	printConfig(cmd.OutOrStdout(), path, values)
	return nil
}

// printConfig writes every known key with its effective value and source,
// followed by any unknown keys found in the file.
func printConfig(w io.Writer, path string, fileValues map[string]string) {
	fmt.Fprintf(w, "Config file: %s\n\n", path)

	for _, ck := range allConfigKeys {
		display, source := "(default)", ""
		if v := os.Getenv(ck.Key); v != "" {
			display, source = displayValue(ck, v), " (from env)"
		} else if v := fileValues[ck.Key]; v != "" {
			display, source = displayValue(ck, v), " (from config file)"
		}
		fmt.Fprintf(w, "  %-20s %s%s\n", ck.Key, display, source)
	}

	var extras []string
	for k := range fileValues {
		if _, known := findKey(k); !known {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		fmt.Fprintf(w, "\n  Ignored keys in config file: %s\n", strings.Join(extras, ", "))
	}
}

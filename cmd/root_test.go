package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aims-sectors/internal/config"
)

// useTestConfig points the package config at a fresh SQLite file.
func useTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "cli.db")},
		Taxonomy: config.TaxonomyConfig{Language: "en", TimeoutSecs: 5, UserAgent: "aims-sectors-test"},
		Picker:   config.PickerConfig{MaxSelections: 3, BadgeLimit: 2},
		Server:   config.ServerConfig{Port: 0, FilterCacheSize: 16},
	}
	t.Cleanup(func() { cfg = prev })
}

// runCmd executes c's RunE with captured output.
func runCmd(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetContext(context.Background())
	t.Cleanup(func() { c.SetOut(nil) })
	err := c.RunE(c, args)
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"import", "tree", "search", "assign", "pick", "chart", "serve", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "aims-sectors", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "4", flag.DefValue)
	assert.NotNil(t, importCmd.Flags().Lookup("include-inactive"))
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	useTestConfig(t)
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestMigrateCommand(t *testing.T) {
	useTestConfig(t)

	out, err := runCmd(t, migrateCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite store is up to date")
}

func TestBuildOptions_InvalidLanguage(t *testing.T) {
	useTestConfig(t)
	cfg.Taxonomy.Language = "not a language!"
	assert.Empty(t, buildOptions())

	cfg.Taxonomy.Language = "fr"
	assert.Len(t, buildOptions(), 1)
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "root command should have a persistent --config flag")
	assert.Empty(t, flag.DefValue)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))

	prevCfg, prevFile, prevLevel := cfg, configFile, logLevel
	t.Cleanup(func() { cfg, configFile, logLevel = prevCfg, prevFile, prevLevel })

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("picker:\n  max_selections: 5\nlog:\n  format: console\n"), 0o644))

	configFile, logLevel = path, "debug"
	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, 5, cfg.Picker.MaxSelections)
	assert.Equal(t, "debug", cfg.Log.Level)

	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

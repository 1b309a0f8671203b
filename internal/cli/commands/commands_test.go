package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapsparql/internal/cli/config"
)

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"limit", "for"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewPrefixesCommand(t *testing.T) {
	cmd := NewPrefixesCommand()

	assert.Equal(t, "prefixes [QUERY]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("input"))
}

func TestGetConfigDefaults(t *testing.T) {
	config.ResetConfig()

	cfg := getConfig()
	assert.Equal(t, config.DefaultFormat, cfg.Format)
	assert.Equal(t, config.DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, filepath.Join(config.DefaultConfigDir(), config.DefaultHistoryFile), cfg.HistoryPath)
}

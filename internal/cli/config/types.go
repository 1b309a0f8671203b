// Package config provides configuration management for the leapsparql CLI.
//
// The configuration is the key-value store the query engine reads from:
// the named endpoints, the currently selected endpoint and the default
// prefix table. Commands build a sparql.QueryJob from it; the engine itself
// never reads or writes the store.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/leapstack-labs/leapsparql/internal/sparql"
)

// EndpointConfig is an alias for the engine's endpoint descriptor.
type EndpointConfig = sparql.EndpointConfig

// PrefixBinding is an alias for the engine's prefix binding.
type PrefixBinding = sparql.PrefixBinding

// Config holds all CLI configuration options.
type Config struct {
	Endpoints   map[string]EndpointConfig `koanf:"endpoints"`
	Current     string                    `koanf:"current"`
	Prefixes    []PrefixBinding           `koanf:"prefixes"`
	Format      string                    `koanf:"format"`
	Verbose     bool                      `koanf:"verbose"`
	Timeout     time.Duration             `koanf:"timeout"` // zero means no transport timeout
	HistoryPath string                    `koanf:"history_path"`
	Concurrency int                       `koanf:"concurrency"`
}

// Default configuration values.
const (
	DefaultFormat      = "text"
	DefaultConcurrency = 4
	DefaultConfigName  = "leapsparql.yaml"
	DefaultHistoryFile = "history.db"
	EnvPrefix          = "LEAPSPARQL_"
)

// Formats lists the accepted values of the format setting.
var Formats = []string{"text", "table", "csv", "markdown", "json"}

// ErrNoEndpoint is returned when no usable endpoint is selected.
var ErrNoEndpoint = errors.New("You should add/select an endpoint using 'leapsparql endpoint use <name>'") //nolint:staticcheck // shown verbatim to users

// FindEndpoint returns the stored name of the endpoint matching name case-insensitively.
func (c *Config) FindEndpoint(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if _, ok := c.Endpoints[name]; ok {
		return name, true
	}
	for k := range c.Endpoints {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

// CurrentEndpoint resolves the selected endpoint. A non-empty override takes
// precedence over the configured current endpoint.
func (c *Config) CurrentEndpoint(override string) (string, EndpointConfig, error) {
	name := c.Current
	if override != "" {
		name = override
	}

	stored, ok := c.FindEndpoint(name)
	if !ok {
		return "", EndpointConfig{}, ErrNoEndpoint
	}
	return stored, c.Endpoints[stored], nil
}

// NewQueryJob builds a job for query against the named endpoint, using the
// configured prefixes as defaults.
func (c *Config) NewQueryJob(override, query string) (sparql.QueryJob, error) {
	name, endpoint, err := c.CurrentEndpoint(override)
	if err != nil {
		return sparql.QueryJob{}, err
	}
	return sparql.NewQueryJob(name, endpoint, query, c.Prefixes), nil
}

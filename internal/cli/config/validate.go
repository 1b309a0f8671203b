package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("unknown format %q (expected one of: %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}

	names := slices.Sorted(maps.Keys(c.Endpoints))
	for i, name := range names {
		for _, other := range names[i+1:] {
			if strings.EqualFold(name, other) {
				return fmt.Errorf("endpoint names %q and %q differ only in case", name, other)
			}
		}
	}

	for name, e := range c.Endpoints {
		if err := ValidateEndpointName(name); err != nil {
			return err
		}
		if e.URL == "" {
			return fmt.Errorf("endpoint %q has no url\nHint: endpoint names must not contain '.'", name)
		}
	}

	for i, p := range c.Prefixes {
		if p.Prefix == "" || p.URI == "" {
			return fmt.Errorf("prefixes[%d]: both prefix and uri are required", i)
		}
	}

	return nil
}

// ValidateEndpointName checks that name can be used as an endpoints key.
func ValidateEndpointName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("endpoint name must not be empty")
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("endpoint name %q must not contain '.'", name)
	}
	return nil
}

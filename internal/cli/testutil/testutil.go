// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsparql/internal/cli/output"
)

// ConfigFixture describes a config file written by WriteConfig.
type ConfigFixture struct {
	Path        string
	HistoryPath string
}

// WriteConfig writes a leapsparql.yaml into a temp dir with endpoint
// "Example" at url (current), endpoint "Wikidata", the ex: default prefix and
// a history database next to it.
func WriteConfig(t *testing.T, url string) ConfigFixture {
	t.Helper()

	dir := t.TempDir()
	fx := ConfigFixture{
		Path:        filepath.Join(dir, "leapsparql.yaml"),
		HistoryPath: filepath.Join(dir, "history.db"),
	}

	doc := map[string]any{
		"endpoints": map[string]any{
			"Example":  map[string]string{"url": url},
			"Wikidata": map[string]string{"url": "https://query.wikidata.org/sparql"},
		},
		"current": "Example",
		"prefixes": []map[string]string{
			{"prefix": "ex:", "uri": "http://example.org/"},
		},
		"history_path": fx.HistoryPath,
	}

	content, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to encode config: %v", err)
	}
	if err := os.WriteFile(fx.Path, content, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return fx
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

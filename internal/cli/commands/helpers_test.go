package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsparql/internal/cli/config"
	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	clitestutil "github.com/leapstack-labs/leapsparql/internal/cli/testutil"
	"github.com/leapstack-labs/leapsparql/internal/testutil"
)

const peopleJSON = `{
  "head": {"vars": ["s", "name"]},
  "results": {"bindings": [
    {"s": {"type": "uri", "value": "http://example.org/alice"}, "name": {"type": "literal", "value": "Alice"}},
    {"s": {"type": "uri", "value": "http://other.org/bob"}}
  ]}
}`

// testContext is a CommandContext whose renderer writes to buffers.
type testContext struct {
	*CommandContext
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

func newTestContext(t *testing.T, cfg *config.Config, mode output.Mode) *testContext {
	t.Helper()
	if cfg.Format == "" {
		cfg.Format = config.DefaultFormat
	}
	tr := clitestutil.NewTestRenderer(mode, false)
	return &testContext{
		CommandContext: &CommandContext{
			Cfg:      cfg,
			Logger:   testutil.NewTestLogger(t),
			Renderer: tr.Renderer,
		},
		Out:    tr.Out,
		ErrOut: tr.ErrOut,
	}
}

// newTestConfig returns a config with one endpoint "Example" at url, the ex:
// default prefix and a history database in a temp dir.
func newTestConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	return &config.Config{
		Endpoints: map[string]config.EndpointConfig{
			"Example": {URL: url},
		},
		Current:     "Example",
		Prefixes:    []config.PrefixBinding{{Prefix: "ex:", URI: "http://example.org/"}},
		Format:      config.DefaultFormat,
		HistoryPath: filepath.Join(t.TempDir(), "history.db"),
		Concurrency: 2,
	}
}

// loadTestConfig writes a config file with endpoints "Example" at url and
// "Wikidata", loads it as the current configuration and returns its path.
func loadTestConfig(t *testing.T, url string) string {
	t.Helper()
	fx := clitestutil.WriteConfig(t, url)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig(fx.Path, nil)
	require.NoError(t, err)
	return fx.Path
}

// captureCommand redirects cmd's output to buffers.
func captureCommand(cmd *cobra.Command) (*bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return stdout, stderr
}

package commands

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsparql/internal/cli/config"
	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	"github.com/leapstack-labs/leapsparql/internal/history"
	"github.com/leapstack-labs/leapsparql/internal/sparql"
	"github.com/leapstack-labs/leapsparql/internal/testutil"
)

func TestSelectLines(t *testing.T) {
	doc := "PREFIX ex: <http://example.org/>\n\nSELECT *\nWHERE { ?s ?p ?o }\n"

	tests := []struct {
		name    string
		sel     string
		want    string
		wantErr string
	}{
		{name: "no selection", sel: "", want: doc},
		{name: "range", sel: "3:4", want: "SELECT *\nWHERE { ?s ?p ?o }"},
		{name: "single line", sel: "1", want: "PREFIX ex: <http://example.org/>"},
		{name: "open end", sel: "3:", want: "SELECT *\nWHERE { ?s ?p ?o }\n"},
		{name: "open start", sel: ":1", want: "PREFIX ex: <http://example.org/>"},
		{name: "clamped", sel: "4:99", want: "WHERE { ?s ?p ?o }\n"},
		{name: "blank selection falls back", sel: "2:2", want: doc},
		{name: "past the end falls back", sel: "40:", want: doc},
		{name: "reversed", sel: "4:3", wantErr: "start is after end"},
		{name: "not a number", sel: "a:3", wantErr: "not a number"},
		{name: "zero", sel: "0:3", wantErr: "start at 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectLines(doc, tt.sel)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFormatter(t *testing.T) {
	table := &sparql.Table{
		Variables: []string{"s", "name"},
		Rows: []map[string]string{
			{"s": "ex:alice", "name": "Alice, \"Al\""},
			{"s": "ex:bob", "name": "a|b\nc"},
		},
	}

	t.Run("text", func(t *testing.T) {
		f, err := NewFormatter("text")
		require.NoError(t, err)
		assert.Equal(t, sparql.TextFormatter{}.Format(table), f.Format(table))
	})

	t.Run("table", func(t *testing.T) {
		f, err := NewFormatter("table")
		require.NoError(t, err)
		out := f.Format(table)
		assert.Contains(t, out, "ex:alice")
		assert.Contains(t, out, `a|b\nc`)
		assert.Contains(t, out, "(2 rows)")
	})

	t.Run("csv", func(t *testing.T) {
		f, err := NewFormatter("csv")
		require.NoError(t, err)
		assert.Equal(t, "s,name\nex:alice,\"Alice, \"\"Al\"\"\"\nex:bob,\"a|b\nc\"\n", f.Format(table))
	})

	t.Run("markdown", func(t *testing.T) {
		f, err := NewFormatter("markdown")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSuffix(f.Format(table), "\n"), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "| s | name |", lines[0])
		assert.Equal(t, "| --- | --- |", lines[1])
		assert.Equal(t, `| ex:bob | a\|b\nc |`, lines[3])
	})

	t.Run("json", func(t *testing.T) {
		f, err := NewFormatter("json")
		require.NoError(t, err)
		out := f.Format(&sparql.Table{Variables: []string{"s"}, Rows: []map[string]string{{"s": "ex:a"}}})
		assert.JSONEq(t, `{"variables":["s"],"rows":[{"s":"ex:a"}]}`, out)
	})

	t.Run("json without variables", func(t *testing.T) {
		f, err := NewFormatter("json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"variables":[],"rows":[]}`, f.Format(&sparql.Table{}))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewFormatter("xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})
}

func TestRunSingleQuery_JSONResults(t *testing.T) {
	ep := testutil.NewEndpoint(t, testutil.Response{ContentType: "application/json", Body: peopleJSON})
	cfg := newTestConfig(t, ep.URL)
	tc := newTestContext(t, cfg, output.ModeAuto)

	query := "PREFIX other: <http://other.org/>\nSELECT ?s ?name WHERE { ?s ?p ?name }"
	err := runSingleQuery(context.Background(), tc.CommandContext, "", "text", query)
	require.NoError(t, err)

	assert.Equal(t, "s          name \n---------  -----\nex:alice   Alice\nother:bob       \n", tc.Out.String())
	assert.Contains(t, tc.ErrOut.String(), "Query on Example succeeded")

	reqs := ep.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, query, reqs[0].Query.Get("query"))

	store := history.NewStore(nil)
	require.NoError(t, store.Open(cfg.HistoryPath))
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Example", runs[0].Endpoint)
	assert.Equal(t, history.StatusSucceeded, runs[0].Status)
	assert.Equal(t, len(tc.Out.String()), runs[0].ResultBytes)
}

func TestRunSingleQuery_Failure(t *testing.T) {
	ep := testutil.NewEndpoint(t, testutil.Response{ContentType: "application/xml", Body: "<sparql/>"})
	cfg := newTestConfig(t, ep.URL)
	tc := newTestContext(t, cfg, output.ModeAuto)

	err := runSingleQuery(context.Background(), tc.CommandContext, "", "text", "ASK {}")

	require.Error(t, err)
	assert.True(t, errors.Is(err, output.ErrReported))
	var ct *sparql.UnsupportedContentTypeError
	require.ErrorAs(t, err, &ct)
	assert.Empty(t, tc.Out.String())
	assert.Contains(t, tc.ErrOut.String(), "Error: Response content type not supported: application/xml")

	store := history.NewStore(nil)
	require.NoError(t, store.Open(cfg.HistoryPath))
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, "Response content type not supported: application/xml", runs[0].Error)
}

func TestRunSingleQuery_StoppedWaitingRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		<-release
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("too late"))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := newTestConfig(t, srv.URL)
	tc := newTestContext(t, cfg, output.ModeAuto)

	err := runSingleQuery(ctx, tc.CommandContext, "", "text", "ASK {}")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, output.ErrReported)
	assert.Empty(t, tc.Out.String())
	assert.Contains(t, tc.ErrOut.String(), "Stopped waiting for Example")

	store := history.NewStore(nil)
	require.NoError(t, store.Open(cfg.HistoryPath))
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, "stopped waiting for the result", runs[0].Error)
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestRunSingleQuery_DeliversToSink(t *testing.T) {
	ep := testutil.NewEndpoint(t, testutil.Response{ContentType: "text/plain", Body: "yes"})
	tc := newTestContext(t, newTestConfig(t, ep.URL), output.ModeAuto)

	var delivered []sparql.Outcome
	tc.Sink = output.SinkFunc(func(o sparql.Outcome) error {
		delivered = append(delivered, o)
		return nil
	})

	require.NoError(t, runSingleQuery(context.Background(), tc.CommandContext, "", "text", "ASK {}"))

	require.Len(t, delivered, 1)
	assert.Equal(t, "yes", delivered[0].Text)
	assert.Empty(t, tc.Out.String(), "the renderer is bypassed")
}

func TestRunSingleQuery_EndpointSelection(t *testing.T) {
	primary := testutil.NewEndpoint(t, testutil.Response{ContentType: "text/plain", Body: "primary"})
	secondary := testutil.NewEndpoint(t, testutil.Response{ContentType: "text/plain", Body: "secondary"})

	cfg := newTestConfig(t, primary.URL)
	cfg.Endpoints["Wikidata"] = config.EndpointConfig{URL: secondary.URL}

	t.Run("override is case-insensitive", func(t *testing.T) {
		tc := newTestContext(t, cfg, output.ModeAuto)
		require.NoError(t, runSingleQuery(context.Background(), tc.CommandContext, "wikidata", "text", "ASK {}"))
		assert.Equal(t, "secondary\n", tc.Out.String())
	})

	t.Run("no endpoint selected", func(t *testing.T) {
		noCurrent := *cfg
		noCurrent.Current = ""
		tc := newTestContext(t, &noCurrent, output.ModeAuto)

		err := runSingleQuery(context.Background(), tc.CommandContext, "", "text", "ASK {}")
		assert.ErrorIs(t, err, config.ErrNoEndpoint)
	})
}

func TestRunSingleQuery_HistoryUnavailable(t *testing.T) {
	ep := testutil.NewEndpoint(t, testutil.Response{ContentType: "text/plain", Body: "ok"})
	cfg := newTestConfig(t, ep.URL)

	// a directory cannot be opened as a database
	cfg.HistoryPath = t.TempDir()
	tc := newTestContext(t, cfg, output.ModeAuto)

	require.NoError(t, runSingleQuery(context.Background(), tc.CommandContext, "", "text", "ASK {}"))
	assert.Equal(t, "ok\n", tc.Out.String())
}

func TestRunQueryFiles(t *testing.T) {
	ok := testutil.NewEndpoint(t, testutil.Response{ContentType: "application/json", Body: peopleJSON})
	cfg := newTestConfig(t, ok.URL)

	dir := t.TempDir()
	first := filepath.Join(dir, "first.rq")
	second := filepath.Join(dir, "second.rq")
	require.NoError(t, os.WriteFile(first, []byte("SELECT * WHERE { ?s ?p ?o }\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("PREFIX o: <http://other.org/>\nSELECT * WHERE { ?s ?p ?o }\n"), 0o600))

	t.Run("outcomes in file order with independent prefixes", func(t *testing.T) {
		tc := newTestContext(t, cfg, output.ModeMarkdown)
		require.NoError(t, runQueryFiles(context.Background(), tc.CommandContext, []string{first, second}, ""))

		out := tc.Out.String()
		firstAt := strings.Index(out, "## "+first)
		secondAt := strings.Index(out, "## "+second)
		require.GreaterOrEqual(t, firstAt, 0)
		require.Greater(t, secondAt, firstAt)

		assert.Contains(t, out[firstAt:secondAt], "http://other.org/bob")
		assert.Contains(t, out[secondAt:], "o:bob")
		assert.Len(t, ok.Requests(), 2)
	})

	t.Run("failures are counted", func(t *testing.T) {
		bad := testutil.NewEndpoint(t, testutil.Response{Status: 500, ContentType: "text/plain", Body: "boom"})
		badCfg := newTestConfig(t, bad.URL)
		tc := newTestContext(t, badCfg, output.ModeMarkdown)

		err := runQueryFiles(context.Background(), tc.CommandContext, []string{first, second}, "")
		require.Error(t, err)
		assert.True(t, isReported(err))
		assert.Contains(t, err.Error(), "2 of 2 queries failed")
		assert.Equal(t, 2, strings.Count(tc.ErrOut.String(), "Error: HTTP Error 500"))
	})

	t.Run("missing file", func(t *testing.T) {
		tc := newTestContext(t, cfg, output.ModeMarkdown)
		err := runQueryFiles(context.Background(), tc.CommandContext, []string{first, filepath.Join(dir, "nope.rq")}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read file")
	})
}

func TestQueryCommand_Stdin(t *testing.T) {
	ep := testutil.NewEndpoint(t, testutil.Response{ContentType: "text/plain", Body: "from stdin"})
	loadTestConfig(t, ep.URL)

	cmd := NewQueryCommand()
	stdout, stderr := captureCommand(cmd)
	cmd.SetIn(strings.NewReader("line one\nSELECT 2\n"))
	cmd.SetArgs([]string{"--lines", "2"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "from stdin\n", stdout.String())
	assert.NotContains(t, stderr.String(), "Error")

	reqs := ep.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "SELECT 2", reqs[0].Query.Get("query"))
}

func TestQueryCommand_Args(t *testing.T) {
	ep := testutil.NewEndpoint(t, testutil.Response{ContentType: "text/plain", Body: "from args"})
	loadTestConfig(t, ep.URL)

	cmd := NewQueryCommand()
	stdout, _ := captureCommand(cmd)
	cmd.SetArgs([]string{"ASK", "{}"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "from args\n", stdout.String())
	assert.Equal(t, "ASK {}", ep.Requests()[0].Query.Get("query"))
}

func TestQueryCommandMetadata(t *testing.T) {
	cmd := NewQueryCommand()

	assert.Equal(t, "query [QUERY]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Example)
	for _, flag := range []string{"input", "lines"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

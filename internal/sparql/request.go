package sparql

import (
	"context"
	"encoding/base64"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// EndpointConfig describes a SPARQL endpoint and how to authenticate against it.
type EndpointConfig struct {
	URL        string            `koanf:"url" json:"url"`
	Username   string            `koanf:"username" json:"username,omitempty"`
	Password   string            `koanf:"password" json:"password,omitempty"`
	Parameters map[string]string `koanf:"parameters" json:"parameters,omitempty"`
}

// HasCredentials reports whether requests to the endpoint carry Basic auth.
func (e EndpointConfig) HasCredentials() bool {
	return e.Username != ""
}

// QueryJob is a single query run against one endpoint.
// A job is owned by exactly one Executor and must not be shared.
type QueryJob struct {
	// Name is the configured endpoint name, used for logging and status messages.
	Name     string
	Endpoint EndpointConfig
	Query    string
	Prefixes []PrefixBinding
}

// NewQueryJob builds a job whose prefix table is defaults followed by the
// PREFIX declarations found in query. The endpoint parameters are copied so
// the job owns everything it references.
func NewQueryJob(name string, endpoint EndpointConfig, query string, defaults []PrefixBinding) QueryJob {
	endpoint.Parameters = maps.Clone(endpoint.Parameters)
	return QueryJob{
		Name:     name,
		Endpoint: endpoint,
		Query:    query,
		Prefixes: MergePrefixes(defaults, ParsePrefixes(query)),
	}
}

// EncodeParams returns the URL-encoded query string for job.
// Endpoint parameters are applied after "query", so a parameter literally
// named "query" replaces the query text.
func EncodeParams(job QueryJob) string {
	params := url.Values{}
	params.Set("query", job.Query)
	for k, v := range job.Endpoint.Parameters {
		params.Set(k, v)
	}
	return params.Encode()
}

// BuildRequest turns job into a GET request against the endpoint URL.
// An error is returned only when the URL cannot be parsed at all.
func BuildRequest(ctx context.Context, job QueryJob) (*http.Request, error) {
	sep := "?"
	if strings.Contains(job.Endpoint.URL, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.Endpoint.URL+sep+EncodeParams(job), nil)
	if err != nil {
		return nil, err
	}

	if job.Endpoint.HasCredentials() {
		req.Header.Set("Authorization", "Basic "+basicAuth(job.Endpoint.Username, job.Endpoint.Password))
	}

	return req, nil
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

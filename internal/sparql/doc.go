// Package sparql runs queries against SPARQL endpoints and formats the results.
//
// A run is described by a QueryJob: the endpoint, the query text and the
// prefix table used to shorten URIs in the output. An Executor performs one
// job on a background goroutine and records a single terminal Outcome, which
// is either the formatted text or an error describing why the run failed.
package sparql

package sparql

import (
	"encoding/json"
	"errors"
)

// Term is one cell of a SPARQL JSON result binding.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Results is the application/sparql-results+json document for SELECT queries.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results"`
}

// rawResults mirrors Results with pointers so missing members can be detected.
type rawResults struct {
	Head *struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results"`
}

// DecodeResults parses body as SPARQL JSON results.
// Bodies that are not JSON, or lack head.vars or results.bindings, yield a *MalformedResultError.
func DecodeResults(body []byte) (*Results, error) {
	var raw rawResults
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResultError{Err: err}
	}
	if raw.Head == nil || raw.Head.Vars == nil {
		return nil, &MalformedResultError{Err: errors.New("missing head.vars")}
	}
	if raw.Results == nil || raw.Results.Bindings == nil {
		return nil, &MalformedResultError{Err: errors.New("missing results.bindings")}
	}

	res := &Results{}
	res.Head.Vars = raw.Head.Vars
	res.Results.Bindings = raw.Results.Bindings
	return res, nil
}

// Table is the result set flattened to strings: one column per variable,
// one row per binding.
type Table struct {
	Variables []string
	Rows      []map[string]string
}

// NewTable flattens res into a Table, abbreviating every value with prefixes.
// Variables that are unbound in a row get an empty string.
func NewTable(res *Results, prefixes []PrefixBinding) *Table {
	t := &Table{
		Variables: res.Head.Vars,
		Rows:      make([]map[string]string, 0, len(res.Results.Bindings)),
	}

	for _, binding := range res.Results.Bindings {
		row := make(map[string]string, len(t.Variables))
		for _, v := range t.Variables {
			// A missing variable yields the zero Term and so an empty value.
			row[v] = Abbreviate(binding[v].Value, prefixes)
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

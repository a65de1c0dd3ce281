package jira

import "strings"

// maxAmbiguousDisplay bounds how many candidates an ambiguity message lists.
const maxAmbiguousDisplay = 5

// Candidate is an entity considered during fuzzy resolution: a stable
// case-insensitive key, a human display name, and (for projects) an optional
// description that is also searched.
type Candidate struct {
	Key         string
	Name        string
	Description string
}

// ResolutionState tags the outcome of a Match call.
type ResolutionState int

const (
	StateResolved ResolutionState = iota
	StateAmbiguous
	StateNotFound
)

// Resolution is the outcome of matching a query against a candidate list.
// Exactly one state applies: Resolved carries Key and no candidate list,
// Ambiguous carries the full matched list in discovery order, NotFound
// carries only the query.
type Resolution struct {
	State   ResolutionState
	Key     string
	Query   string
	Matches []Candidate
}

// Match resolves a free-text query against a candidate list.
//
// An exact case-insensitive key match always wins immediately, even when
// other candidates would partially match by name. Otherwise candidates whose
// name or description contains the query (case-insensitive) are collected,
// deduplicated by key, and the usual zero/one/many policy applies.
//
// Match is pure: it never fetches and never fails. Note that an empty query
// trivially matches every candidate's name, so callers must reject empty
// queries upstream.
func Match(query string, candidates []Candidate) Resolution {
	normalized := strings.ToLower(strings.TrimSpace(query))

	for _, c := range candidates {
		if strings.ToLower(c.Key) == normalized {
			return Resolution{State: StateResolved, Key: c.Key, Query: query}
		}
	}

	var matches []Candidate
	seen := make(map[string]struct{})
	for _, c := range candidates {
		nameMatch := strings.Contains(strings.ToLower(c.Name), normalized)
		descMatch := c.Description != "" &&
			strings.Contains(strings.ToLower(c.Description), normalized)
		if !nameMatch && !descMatch {
			continue
		}
		key := strings.ToLower(c.Key)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		matches = append(matches, c)
	}

	switch len(matches) {
	case 0:
		return Resolution{State: StateNotFound, Query: query}
	case 1:
		return Resolution{State: StateResolved, Key: matches[0].Key, Query: query}
	default:
		return Resolution{State: StateAmbiguous, Query: query, Matches: matches}
	}
}

package types

import "sort"

// Event is the flattened form of an engine event: a type plus string
// attributes, as carried on contract responses.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// SortedKeys returns the attribute keys in lexical order so renderings are
// deterministic.
func (e Event) SortedKeys() []string {
	keys := make([]string, 0, len(e.Attributes))
	for key := range e.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

package state

import (
	"encoding/json"
	"sort"
)

// NotifiedSet maps an item's natural key to the time it was first marked notified.
type NotifiedSet struct {
	entries map[string]string
}

func newNotifiedSet() *NotifiedSet {
	return &NotifiedSet{entries: map[string]string{}}
}

// IsNew reports whether key has never been marked (or has been pruned since).
func (n *NotifiedSet) IsNew(key string) bool {
	_, ok := n.entries[key]
	return !ok
}

// MarkedAt returns the stored timestamp for key.
func (n *NotifiedSet) MarkedAt(key string) (string, bool) {
	ts, ok := n.entries[key]
	return ts, ok
}

// Len reports the number of tracked keys.
func (n *NotifiedSet) Len() int {
	return len(n.entries)
}

// Keys lists tracked keys in lexical order.
func (n *NotifiedSet) Keys() []string {
	keys := make([]string, 0, len(n.entries))
	for k := range n.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *NotifiedSet) mark(keys []string, stamp string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		n.entries[k] = stamp
	}
}

func (n *NotifiedSet) prune(cutoff string) int {
	removed := 0
	for k, ts := range n.entries {
		if ts > cutoff {
			continue
		}
		delete(n.entries, k)
		removed++
	}
	return removed
}

// MarshalJSON writes the set as a key -> timestamp object.
func (n *NotifiedSet) MarshalJSON() ([]byte, error) {
	if n == nil || n.entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n.entries)
}

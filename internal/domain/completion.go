package domain

// CompletionSet tracks the pick entries considered resolved, either
// packed or explicitly skipped. It grows monotonically for the lifetime
// of a session; going back in the sequence never removes entries.
type CompletionSet struct {
	entries map[string]struct{}
}

// NewCompletionSet creates an empty completion set.
func NewCompletionSet() *CompletionSet {
	return &CompletionSet{entries: make(map[string]struct{})}
}

// MarkResolved unions the given entry ids into the set. Marking an
// already-resolved entry is a no-op. Returns the number of entries that
// were newly added.
func (c *CompletionSet) MarkResolved(entryIDs ...string) int {
	added := 0
	for _, id := range entryIDs {
		if id == "" {
			continue
		}
		if _, ok := c.entries[id]; !ok {
			c.entries[id] = struct{}{}
			added++
		}
	}
	return added
}

// Contains reports whether the entry id is resolved.
func (c *CompletionSet) Contains(entryID string) bool {
	_, ok := c.entries[entryID]
	return ok
}

// AllResolved reports whether every given entry id is resolved. An
// empty id list is vacuously resolved, so an item command that carries
// no entries is never treated as pending work.
func (c *CompletionSet) AllResolved(entryIDs []string) bool {
	for _, id := range entryIDs {
		if _, ok := c.entries[id]; !ok {
			return false
		}
	}
	return true
}

// Size returns the number of resolved entries.
func (c *CompletionSet) Size() int {
	return len(c.entries)
}

// IsItemFullyResolved reports whether every entry the item command
// references is resolved. Non-item commands resolve vacuously.
func (c *CompletionSet) IsItemFullyResolved(cmd Command) bool {
	return c.AllResolved(cmd.PickableEntryIDs)
}

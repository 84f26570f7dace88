package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionSetMarkResolved(t *testing.T) {
	set := NewCompletionSet()

	assert.Equal(t, 2, set.MarkResolved("e1", "e2"))
	assert.Equal(t, 2, set.Size())

	// Idempotent union
	assert.Equal(t, 0, set.MarkResolved("e1", "e2"))
	assert.Equal(t, 1, set.MarkResolved("e2", "e3"))
	assert.Equal(t, 3, set.Size())

	// Blank ids are ignored
	assert.Equal(t, 0, set.MarkResolved(""))
	assert.Equal(t, 3, set.Size())

	assert.True(t, set.Contains("e1"))
	assert.False(t, set.Contains("e9"))
}

func TestCompletionSetAllResolved(t *testing.T) {
	set := NewCompletionSet()
	set.MarkResolved("e1", "e2")

	tests := []struct {
		name     string
		entryIDs []string
		expected bool
	}{
		{"All present", []string{"e1", "e2"}, true},
		{"One missing", []string{"e1", "e3"}, false},
		{"Empty list is vacuously resolved", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, set.AllResolved(tt.entryIDs))
		})
	}
}

// TestCompletionSetItemWithoutEntries tests that an item command with
// no pickable entries resolves vacuously instead of blocking navigation
func TestCompletionSetItemWithoutEntries(t *testing.T) {
	set := NewCompletionSet()
	cmd := Command{ID: "i1", Kind: KindItem}

	assert.True(t, set.IsItemFullyResolved(cmd))
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPlayableIndex(t *testing.T) {
	tests := []struct {
		name       string
		resolved   []string
		from       int
		expectIdx  int
		expectNone bool
	}{
		{
			name:      "Fresh session plays the location checkpoint",
			from:      0,
			expectIdx: 0,
		},
		{
			name:      "Scan starts past the location",
			from:      1,
			expectIdx: 1,
		},
		{
			name:      "Resolved item is skipped to the next machine",
			resolved:  []string{"e1"},
			from:      1,
			expectIdx: 3,
		},
		{
			name:      "Location checkpoint skipped when its items are done",
			resolved:  []string{"e1"},
			from:      0,
			expectIdx: 3,
		},
		{
			name:      "Partially resolved multi-entry item still plays",
			resolved:  []string{"e2"},
			from:      4,
			expectIdx: 4,
		},
		{
			name:       "Everything resolved",
			resolved:   []string{"e1", "e2", "e3"},
			from:       0,
			expectNone: true,
		},
		{
			name:       "Scan past the end",
			from:       5,
			expectNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := routeSequence(t)
			completed := NewCompletionSet()
			completed.MarkResolved(tt.resolved...)
			nav := NewNavigator(seq, completed)

			idx, ok := nav.NextPlayableIndex(tt.from)
			if tt.expectNone {
				assert.False(t, ok)
			} else {
				require.True(t, ok)
				assert.Equal(t, tt.expectIdx, idx)
			}
		})
	}
}

// TestNextPlayableIndexIdempotent tests that repeated scans from the
// same index with no completion change return the same result
func TestNextPlayableIndexIdempotent(t *testing.T) {
	seq := routeSequence(t)
	completed := NewCompletionSet()
	completed.MarkResolved("e1")
	nav := NewNavigator(seq, completed)

	first, ok1 := nav.NextPlayableIndex(0)
	second, ok2 := nav.NextPlayableIndex(0)

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestFirstPendingItemIndex(t *testing.T) {
	seq := routeSequence(t)

	completed := NewCompletionSet()
	nav := NewNavigator(seq, completed)
	idx, ok := nav.FirstPendingItemIndex()
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	completed.MarkResolved("e1")
	idx, ok = nav.FirstPendingItemIndex()
	require.True(t, ok)
	assert.Equal(t, 4, idx)

	completed.MarkResolved("e2", "e3")
	_, ok = nav.FirstPendingItemIndex()
	assert.False(t, ok)
}

func TestContextStartIndex(t *testing.T) {
	seq := routeSequence(t)
	nav := NewNavigator(seq, NewCompletionSet())

	// Item with a matching location command walks back to the location.
	assert.Equal(t, 0, nav.ContextStartIndex(2))

	// Item without location identity walks back to its machine.
	assert.Equal(t, 3, nav.ContextStartIndex(4))
}

// TestContextStartIndexFallsBackToItem covers the defensive branch for
// an item with no reachable boundary at all.
func TestContextStartIndexFallsBackToItem(t *testing.T) {
	seq := &CommandSequence{commands: []Command{
		{ID: "c-i1", Kind: KindItem, PickableEntryIDs: []string{"e1"}},
	}}
	nav := NewNavigator(seq, NewCompletionSet())

	assert.Equal(t, 0, nav.ContextStartIndex(0))
}

func TestMachineHasPendingWork(t *testing.T) {
	seq := routeSequence(t)
	completed := NewCompletionSet()
	nav := NewNavigator(seq, completed)

	// Index 2 is the first item; its machine (M1) has pending work
	// until e1 resolves.
	assert.True(t, nav.MachineHasPendingWork(2))
	completed.MarkResolved("e1")
	assert.False(t, nav.MachineHasPendingWork(2))

	// M2's item is untouched.
	assert.True(t, nav.MachineHasPendingWork(4))
}

// TestMachineScanStopsAtBoundary tests that a machine checkpoint only
// looks at its own downstream segment when deciding playability
func TestMachineScanStopsAtBoundary(t *testing.T) {
	seq := routeSequence(t)
	completed := NewCompletionSet()
	completed.MarkResolved("e1")
	nav := NewNavigator(seq, completed)

	// M1 is done even though M2 still has work.
	idx, ok := nav.NextPlayableIndex(1)
	require.True(t, ok)
	assert.Equal(t, 3, idx)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routeCommands returns the canonical two-machine fixture: one location,
// two machines, with the second machine's item linked by machine
// identity only (its own location is unknown to the generator).
func routeCommands() []Command {
	return []Command{
		{ID: "c-l1", Kind: KindLocation, LocationID: "L1", LocationName: "Head Office", NarrationText: "Head Office, two machines."},
		{ID: "c-m1", Kind: KindMachine, LocationID: "L1", MachineID: "M1", MachineName: "Lobby Snacks", NarrationText: "Machine Lobby Snacks."},
		{ID: "c-i1", Kind: KindItem, LocationID: "L1", LocationName: "Head Office", MachineID: "M1", MachineName: "Lobby Snacks",
			PickableEntryIDs: []string{"e1"}, NarrationText: "Coil A1, two cola.", Quantity: 2, CoilCode: "A1"},
		{ID: "c-m2", Kind: KindMachine, LocationID: "L1", MachineID: "M2", MachineName: "Breakroom Drinks", NarrationText: "Machine Breakroom Drinks."},
		{ID: "c-i2", Kind: KindItem, MachineID: "M2", MachineName: "Breakroom Drinks",
			PickableEntryIDs: []string{"e2", "e3"}, NarrationText: "Coil B2, three water.", Quantity: 3, CoilCode: "B2"},
	}
}

func routeSequence(t *testing.T) *CommandSequence {
	t.Helper()
	seq, err := NewCommandSequence(routeCommands())
	require.NoError(t, err)
	return seq
}

func TestNewCommandSequence(t *testing.T) {
	tests := []struct {
		name        string
		commands    []Command
		expectError error
	}{
		{
			name:     "Valid hierarchical sequence",
			commands: routeCommands(),
		},
		{
			name:        "Empty sequence",
			commands:    nil,
			expectError: ErrEmptySequence,
		},
		{
			name: "Unknown kind",
			commands: []Command{
				{ID: "c1", Kind: CommandKind("aisle")},
			},
			expectError: ErrUnknownKind,
		},
		{
			name: "Item without preceding machine",
			commands: []Command{
				{ID: "c1", Kind: KindLocation, LocationID: "L1"},
				{ID: "c2", Kind: KindItem, MachineID: "M1", PickableEntryIDs: []string{"e1"}},
			},
			expectError: ErrOrphanItem,
		},
		{
			name: "Item under machine with different identity",
			commands: []Command{
				{ID: "c1", Kind: KindLocation, LocationID: "L1"},
				{ID: "c2", Kind: KindMachine, LocationID: "L1", MachineID: "M1"},
				{ID: "c3", Kind: KindItem, MachineID: "M2", PickableEntryIDs: []string{"e1"}},
			},
			expectError: ErrOrphanItem,
		},
		{
			name: "Machine without preceding location",
			commands: []Command{
				{ID: "c1", Kind: KindMachine, LocationID: "L1", MachineID: "M1"},
			},
			expectError: ErrOrphanMachine,
		},
		{
			name: "Duplicate command id",
			commands: []Command{
				{ID: "c1", Kind: KindLocation, LocationID: "L1"},
				{ID: "c1", Kind: KindMachine, LocationID: "L1", MachineID: "M1"},
			},
			expectError: ErrDuplicateCommand,
		},
		{
			name: "Indirect linkage via name fallback",
			commands: []Command{
				{ID: "c1", Kind: KindLocation, LocationName: "East Campus"},
				{ID: "c2", Kind: KindMachine, LocationName: "East Campus", MachineName: "Breakroom"},
				{ID: "c3", Kind: KindItem, MachineName: "Breakroom", PickableEntryIDs: []string{"e1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := NewCommandSequence(tt.commands)
			if tt.expectError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, seq)
			} else {
				require.NoError(t, err)
				require.NotNil(t, seq)
				assert.Equal(t, len(tt.commands), seq.Len())
			}
		})
	}
}

func TestCommandSequenceEntryUniverse(t *testing.T) {
	seq := routeSequence(t)

	assert.Equal(t, 3, seq.EntryCount())
	assert.True(t, seq.ContainsEntry("e1"))
	assert.True(t, seq.ContainsEntry("e3"))
	assert.False(t, seq.ContainsEntry("e4"))
}

func TestCommandSequenceCommandsCopy(t *testing.T) {
	seq := routeSequence(t)

	commands := seq.Commands()
	commands[0].NarrationText = "mutated"

	assert.Equal(t, "Head Office, two machines.", seq.At(0).NarrationText)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIdentityKeyFallbackPriority tests the documented id > code > name
// > synthetic fallback chain for both roles
func TestIdentityKeyFallbackPriority(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		role     IdentityRole
		expected string
	}{
		{
			name:     "Machine id wins over code and name",
			cmd:      Command{ID: "c1", MachineID: "M-1", MachineCode: "A7", MachineName: "Lobby Snacks"},
			role:     RoleMachine,
			expected: "id:M-1",
		},
		{
			name:     "Machine code wins when id is blank",
			cmd:      Command{ID: "c1", MachineID: "  ", MachineCode: "A7", MachineName: "Lobby Snacks"},
			role:     RoleMachine,
			expected: "code:A7",
		},
		{
			name:     "Machine name used when id and code are absent",
			cmd:      Command{ID: "c1", MachineName: " Lobby Snacks "},
			role:     RoleMachine,
			expected: "name:Lobby Snacks",
		},
		{
			name:     "Synthetic key when nothing identifies the machine",
			cmd:      Command{ID: "c1"},
			role:     RoleMachine,
			expected: "cmd:c1",
		},
		{
			name:     "Location id wins over name",
			cmd:      Command{ID: "c2", LocationID: "L-9", LocationName: "East Campus"},
			role:     RoleLocation,
			expected: "id:L-9",
		},
		{
			name:     "Location name used when id is whitespace",
			cmd:      Command{ID: "c2", LocationID: "\t", LocationName: "East Campus"},
			role:     RoleLocation,
			expected: "name:East Campus",
		},
		{
			name:     "Location falls back to synthetic key",
			cmd:      Command{ID: "c2"},
			role:     RoleLocation,
			expected: "cmd:c2",
		},
		{
			name:     "Machine code does not apply to location role",
			cmd:      Command{ID: "c3", MachineCode: "A7"},
			role:     RoleLocation,
			expected: "cmd:c3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IdentityKey(tt.cmd, tt.role))
		})
	}
}

// TestIdentityKeySyntheticNeverMerges tests that two commands without
// any identifiers never share an identity
func TestIdentityKeySyntheticNeverMerges(t *testing.T) {
	a := Command{ID: "cmd-a", Kind: KindMachine}
	b := Command{ID: "cmd-b", Kind: KindMachine}

	assert.NotEqual(t, IdentityKey(a, RoleMachine), IdentityKey(b, RoleMachine))
	assert.NotEqual(t, IdentityKey(a, RoleLocation), IdentityKey(b, RoleLocation))
}

// TestIdentityKeyNameMerge documents the accepted gap: two id-less
// machines sharing a name merge into one identity
func TestIdentityKeyNameMerge(t *testing.T) {
	a := Command{ID: "cmd-a", MachineName: "Breakroom"}
	b := Command{ID: "cmd-b", MachineName: "Breakroom"}

	assert.Equal(t, IdentityKey(a, RoleMachine), IdentityKey(b, RoleMachine))
}

func TestMachineDesignator(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"Prefers name", Command{MachineName: "Lobby Snacks", MachineCode: "A7", MachineID: "M-1"}, "Lobby Snacks"},
		{"Falls back to code", Command{MachineCode: "A7", MachineID: "M-1"}, "A7"},
		{"Falls back to id", Command{MachineID: "M-1"}, "M-1"},
		{"Generic when anonymous", Command{}, "Machine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MachineDesignator(tt.cmd))
		})
	}
}

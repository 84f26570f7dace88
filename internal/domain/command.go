package domain

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrEmptySequence    = errors.New("command sequence has no commands")
	ErrUnknownKind      = errors.New("unknown command kind")
	ErrOrphanItem       = errors.New("item command has no preceding machine with matching identity")
	ErrOrphanMachine    = errors.New("machine command has no preceding location with matching identity")
	ErrDuplicateCommand = errors.New("duplicate command id")
)

// CommandKind represents the type of a narration command
type CommandKind string

const (
	KindLocation CommandKind = "location"
	KindMachine  CommandKind = "machine"
	KindItem     CommandKind = "item"
)

// Valid reports whether the kind is one of the three known kinds.
func (k CommandKind) Valid() bool {
	return k == KindLocation || k == KindMachine || k == KindItem
}

// Command is one step in the generated narration sequence. Commands are
// created once at session load and never mutated; only the completion
// set and the current position change as the picker progresses.
type Command struct {
	ID   string      `json:"id"`
	Kind CommandKind `json:"kind"`

	LocationID   string `json:"locationId,omitempty"`
	LocationName string `json:"locationName,omitempty"`

	MachineID   string `json:"machineId,omitempty"`
	MachineName string `json:"machineName,omitempty"`
	MachineCode string `json:"machineCode,omitempty"`

	// PickableEntryIDs lists the backend pick entries this command
	// resolves. Populated only for item commands; a single instruction
	// may read out more than one physical entry.
	PickableEntryIDs []string `json:"pickableEntryIds,omitempty"`

	NarrationText string `json:"narrationText"`

	// Display metadata, not consulted by navigation.
	Quantity int    `json:"quantity,omitempty"`
	SKUName  string `json:"skuName,omitempty"`
	SKUCode  string `json:"skuCode,omitempty"`
	SKUType  string `json:"skuType,omitempty"`
	CoilCode string `json:"coilCode,omitempty"`
}

// CommandSequence is the immutable, validated, ordered list of commands
// for one packing session.
type CommandSequence struct {
	commands []Command
	universe map[string]struct{}
}

// NewCommandSequence validates and wraps an ordered command list.
// Validation enforces the hierarchy invariant: every item command must
// be preceded by a machine command sharing its machine identity key,
// itself preceded by a location command sharing its location identity
// key. Identity matching uses the documented id > code > name fallback,
// so the reference may be indirect via name when ids are absent.
func NewCommandSequence(commands []Command) (*CommandSequence, error) {
	if len(commands) == 0 {
		return nil, ErrEmptySequence
	}

	seen := make(map[string]struct{}, len(commands))
	universe := make(map[string]struct{})
	machineKeys := make(map[string]struct{})
	locationKeys := make(map[string]struct{})

	for i, cmd := range commands {
		if !cmd.Kind.Valid() {
			return nil, fmt.Errorf("command %d (%s): %w: %q", i, cmd.ID, ErrUnknownKind, cmd.Kind)
		}
		if cmd.ID != "" {
			if _, dup := seen[cmd.ID]; dup {
				return nil, fmt.Errorf("command %d: %w: %q", i, ErrDuplicateCommand, cmd.ID)
			}
			seen[cmd.ID] = struct{}{}
		}

		switch cmd.Kind {
		case KindLocation:
			locationKeys[IdentityKey(cmd, RoleLocation)] = struct{}{}
		case KindMachine:
			if _, ok := locationKeys[IdentityKey(cmd, RoleLocation)]; !ok {
				return nil, fmt.Errorf("command %d (%s): %w", i, cmd.ID, ErrOrphanMachine)
			}
			machineKeys[IdentityKey(cmd, RoleMachine)] = struct{}{}
		case KindItem:
			if _, ok := machineKeys[IdentityKey(cmd, RoleMachine)]; !ok {
				return nil, fmt.Errorf("command %d (%s): %w", i, cmd.ID, ErrOrphanItem)
			}
			for _, entryID := range cmd.PickableEntryIDs {
				universe[entryID] = struct{}{}
			}
		}
	}

	return &CommandSequence{commands: commands, universe: universe}, nil
}

// Len returns the number of commands in the sequence.
func (s *CommandSequence) Len() int {
	return len(s.commands)
}

// At returns the command at index i.
func (s *CommandSequence) At(i int) Command {
	return s.commands[i]
}

// Commands returns a copy of the command list.
func (s *CommandSequence) Commands() []Command {
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// ContainsEntry reports whether the pick entry id belongs to this
// session's pickable-entry universe.
func (s *CommandSequence) ContainsEntry(entryID string) bool {
	_, ok := s.universe[entryID]
	return ok
}

// EntryCount returns the size of the pickable-entry universe.
func (s *CommandSequence) EntryCount() int {
	return len(s.universe)
}

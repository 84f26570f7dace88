package domain

// Navigator computes playable positions over a command sequence given
// the current completion state. All methods are synchronous and pure
// over the in-memory model; remote synchronization happens in the
// application layer.
type Navigator struct {
	seq       *CommandSequence
	completed *CompletionSet
}

// NewNavigator creates a navigator over the sequence and completion set.
func NewNavigator(seq *CommandSequence, completed *CompletionSet) *Navigator {
	return &Navigator{seq: seq, completed: completed}
}

// NextPlayableIndex scans forward from the given index (inclusive) and
// returns the first command that still needs to be played. Item
// commands whose entries are all resolved are skipped. Machine and
// location commands are narration checkpoints: they play only when
// they still introduce unfinished downstream work. Returns false when
// the scan exhausts the sequence.
func (n *Navigator) NextPlayableIndex(from int) (int, bool) {
	for i := from; i < n.seq.Len(); i++ {
		cmd := n.seq.At(i)
		switch cmd.Kind {
		case KindItem:
			if !n.completed.IsItemFullyResolved(cmd) {
				return i, true
			}
		case KindMachine:
			if n.machineHasPendingWork(i) {
				return i, true
			}
		case KindLocation:
			if n.locationHasPendingWork(i) {
				return i, true
			}
		default:
			return i, true
		}
	}
	return 0, false
}

// FirstPendingItemIndex returns the index of the first item command
// with unresolved entries, scanning the whole sequence.
func (n *Navigator) FirstPendingItemIndex() (int, bool) {
	for i := 0; i < n.seq.Len(); i++ {
		cmd := n.seq.At(i)
		if cmd.Kind == KindItem && len(cmd.PickableEntryIDs) > 0 && !n.completed.IsItemFullyResolved(cmd) {
			return i, true
		}
	}
	return 0, false
}

// ContextStartIndex finds where playback should begin for the pending
// item at the given index. It walks back to the nearest preceding
// location command with a matching location identity; failing that,
// the nearest preceding machine command with a matching machine
// identity; failing both, the item's own index. Resuming re-announces
// the enclosing context rather than the bare item.
func (n *Navigator) ContextStartIndex(pendingItemIdx int) int {
	item := n.seq.At(pendingItemIdx)
	locationKey := IdentityKey(item, RoleLocation)
	machineKey := IdentityKey(item, RoleMachine)

	machineIdx := -1
	for i := pendingItemIdx - 1; i >= 0; i-- {
		cmd := n.seq.At(i)
		switch cmd.Kind {
		case KindLocation:
			if IdentityKey(cmd, RoleLocation) == locationKey {
				return i
			}
		case KindMachine:
			if machineIdx < 0 && IdentityKey(cmd, RoleMachine) == machineKey {
				machineIdx = i
			}
		}
	}
	if machineIdx >= 0 {
		return machineIdx
	}
	return pendingItemIdx
}

// MachineHasPendingWork reports whether any item command anywhere in
// the sequence shares the machine identity of the command at idx and is
// still unresolved. Used for the completion-boundary check.
func (n *Navigator) MachineHasPendingWork(idx int) bool {
	key := IdentityKey(n.seq.At(idx), RoleMachine)
	for i := 0; i < n.seq.Len(); i++ {
		cmd := n.seq.At(i)
		if cmd.Kind != KindItem {
			continue
		}
		if IdentityKey(cmd, RoleMachine) == key && !n.completed.IsItemFullyResolved(cmd) {
			return true
		}
	}
	return false
}

// machineHasPendingWork scans downstream of the machine command at idx,
// stopping at the next machine or location boundary with a different
// identity, for an unresolved item sharing its machine identity.
func (n *Navigator) machineHasPendingWork(idx int) bool {
	machine := n.seq.At(idx)
	machineKey := IdentityKey(machine, RoleMachine)
	locationKey := IdentityKey(machine, RoleLocation)

	for i := idx + 1; i < n.seq.Len(); i++ {
		cmd := n.seq.At(i)
		switch cmd.Kind {
		case KindMachine:
			if IdentityKey(cmd, RoleMachine) != machineKey {
				return false
			}
		case KindLocation:
			if IdentityKey(cmd, RoleLocation) != locationKey {
				return false
			}
		case KindItem:
			if IdentityKey(cmd, RoleMachine) == machineKey && !n.completed.IsItemFullyResolved(cmd) {
				return true
			}
		}
	}
	return false
}

// locationHasPendingWork scans downstream of the location command at
// idx, stopping at the next location boundary with a different
// identity, for an unresolved item under this location.
func (n *Navigator) locationHasPendingWork(idx int) bool {
	location := n.seq.At(idx)
	locationKey := IdentityKey(location, RoleLocation)

	for i := idx + 1; i < n.seq.Len(); i++ {
		cmd := n.seq.At(i)
		switch cmd.Kind {
		case KindLocation:
			if IdentityKey(cmd, RoleLocation) != locationKey {
				return false
			}
		case KindItem:
			if IdentityKey(cmd, RoleLocation) == locationKey && !n.completed.IsItemFullyResolved(cmd) {
				return true
			}
		}
	}
	return false
}

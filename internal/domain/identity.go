package domain

import "strings"

// IdentityRole selects which identity of a command is being resolved.
type IdentityRole string

const (
	RoleLocation IdentityRole = "location"
	RoleMachine  IdentityRole = "machine"
)

// IdentityKey resolves the grouping key for a command in the given
// role. The fallback priority is fixed: id, then code, then name (both
// trimmed of whitespace), then a synthetic per-command key. The
// synthetic key is unique to the command, so two commands that both
// lack identifiers never silently merge into one machine or location.
//
// Keys are namespaced by the field that produced them; an id of "A1"
// and a code of "A1" are distinct identities.
//
// Note: name-based fallback keys can still merge two physically
// distinct machines that share a name and carry no id or code. That
// matches the behavior of the sequence generator's consumers today and
// is deliberately left as is.
func IdentityKey(cmd Command, role IdentityRole) string {
	var id, code, name string
	switch role {
	case RoleMachine:
		id, code, name = cmd.MachineID, cmd.MachineCode, cmd.MachineName
	case RoleLocation:
		id, name = cmd.LocationID, cmd.LocationName
	}

	if v := strings.TrimSpace(id); v != "" {
		return "id:" + v
	}
	if v := strings.TrimSpace(code); v != "" {
		return "code:" + v
	}
	if v := strings.TrimSpace(name); v != "" {
		return "name:" + v
	}
	return "cmd:" + cmd.ID
}

// MachineDesignator returns the human-readable machine name used in
// spoken announcements, preferring name, then code, then id.
func MachineDesignator(cmd Command) string {
	if v := strings.TrimSpace(cmd.MachineName); v != "" {
		return v
	}
	if v := strings.TrimSpace(cmd.MachineCode); v != "" {
		return v
	}
	if v := strings.TrimSpace(cmd.MachineID); v != "" {
		return v
	}
	return "Machine"
}

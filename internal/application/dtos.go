package application

// CommandView is the read model for a single command shown to the UI.
type CommandView struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	NarrationText string   `json:"narrationText"`
	LocationName  string   `json:"locationName,omitempty"`
	MachineName   string   `json:"machineName,omitempty"`
	MachineCode   string   `json:"machineCode,omitempty"`
	SKUName       string   `json:"skuName,omitempty"`
	SKUCode       string   `json:"skuCode,omitempty"`
	SKUType       string   `json:"skuType,omitempty"`
	CoilCode      string   `json:"coilCode,omitempty"`
	Quantity      int      `json:"quantity,omitempty"`
	EntryIDs      []string `json:"entryIds,omitempty"`
}

// ChocolateBoxView is the display-only box read model.
type ChocolateBoxView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SessionSnapshot is the read model emitted to the UI after every
// transition and returned by State.
type SessionSnapshot struct {
	RunID           string             `json:"runId"`
	SessionID       string             `json:"sessionId"`
	State           string             `json:"state"`
	Position        int                `json:"position"`
	Total           int                `json:"total"`
	Current         *CommandView       `json:"current,omitempty"`
	PendingMessage  string             `json:"pendingMessage,omitempty"`
	IsComplete      bool               `json:"isComplete"`
	IsSpeaking      bool               `json:"isSpeaking"`
	ResolvedEntries int                `json:"resolvedEntries"`
	TotalEntries    int                `json:"totalEntries"`
	ChocolateBoxes  []ChocolateBoxView `json:"chocolateBoxes,omitempty"`
}

// StopResult reports the outcome of a finish or abandon.
type StopResult struct {
	SessionID      string `json:"sessionId"`
	Status         string `json:"status"`
	ClearedEntries int    `json:"clearedEntries"`
}

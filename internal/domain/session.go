package domain

import (
	"fmt"
	"strings"
	"time"
)

// SessionState represents the local lifecycle state of a pack session.
type SessionState string

const (
	StatePlaying         SessionState = "playing"
	StateMachineComplete SessionState = "machine_complete"
	StateComplete        SessionState = "complete"
)

// Announcement is the at-most-one-active machine-completion banner. It
// is raised when the last unresolved item under a machine boundary is
// resolved and consumed exactly once by an acknowledge (forward) or a
// dismiss (back).
type Announcement struct {
	MachineKey string
	Message    string
}

// SyncDirective instructs the caller to push pick-entry statuses to the
// backend. The state machine never performs remote calls itself.
type SyncDirective struct {
	EntryIDs []string
	Picked   bool
}

// Transition is the explicit effect record returned by every state
// transition. The application layer executes the effects: narrating,
// syncing pick statuses, and finalizing the remote session.
type Transition struct {
	// Narrate is the utterance to hand to the narration gateway, empty
	// when the transition produces nothing to say.
	Narrate string
	// Sync, when non-nil, carries the pick-status update for the item
	// just resolved.
	Sync *SyncDirective
	// Announcement is set when a machine-completion banner was raised
	// by this transition.
	Announcement *Announcement
	// Completed is true when this transition moved the session into
	// the complete state.
	Completed bool
}

// AnnouncementFormatter builds the spoken machine-completion message.
// locationName may be empty when the machine's location is unknown.
type AnnouncementFormatter func(designator, locationName string) string

// DefaultAnnouncementFormatter formats "<designator> complete at
// <location>." or "<designator> complete." without a known location.
func DefaultAnnouncementFormatter(designator, locationName string) string {
	if locationName == "" {
		return fmt.Sprintf("%s complete.", designator)
	}
	return fmt.Sprintf("%s complete at %s.", designator, locationName)
}

// SessionConfig carries the tunable phrasing for a session.
type SessionConfig struct {
	AnnouncementFormatter AnnouncementFormatter
	SessionCompletePhrase string
}

// DefaultSessionConfig returns the stock English phrasing.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		AnnouncementFormatter: DefaultAnnouncementFormatter,
		SessionCompletePhrase: "Packing complete. All items have been resolved.",
	}
}

// PackSession is the aggregate for one guided packing session: the
// immutable command sequence, the monotonic completion set, the current
// position, and the machine-announcement bookkeeping. All transition
// methods are synchronous over in-memory state and return an explicit
// Transition describing their side effects.
//
// Position invariant: position is always in [0, Len()], with Len()
// meaning the session is complete.
type PackSession struct {
	runID     string
	sessionID string

	seq       *CommandSequence
	completed *CompletionSet
	nav       *Navigator

	position int
	state    SessionState

	announced map[string]struct{}
	pending   *Announcement

	config *SessionConfig

	domainEvents []DomainEvent
}

// NewPackSession creates a session over a validated command sequence.
// The session starts unseeded and unpositioned; call SeedResolved for
// the run's already-picked entries, then Begin.
func NewPackSession(runID, sessionID string, seq *CommandSequence, config *SessionConfig) *PackSession {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if config.AnnouncementFormatter == nil {
		config.AnnouncementFormatter = DefaultAnnouncementFormatter
	}
	completed := NewCompletionSet()
	return &PackSession{
		runID:     runID,
		sessionID: sessionID,
		seq:       seq,
		completed: completed,
		nav:       NewNavigator(seq, completed),
		state:     StatePlaying,
		announced: make(map[string]struct{}),
		config:    config,
	}
}

// SeedResolved marks entries as pre-resolved. Only entries that belong
// to this session's pickable-entry universe are accepted, which guards
// against stale or foreign picks leaking in from the run detail.
// Returns the number of entries actually seeded.
func (s *PackSession) SeedResolved(entryIDs []string) int {
	seeded := 0
	for _, id := range entryIDs {
		if s.seq.ContainsEntry(id) {
			seeded += s.completed.MarkResolved(id)
		}
	}
	return seeded
}

// Begin computes the initial position. If pending work exists the
// session starts at the context boundary of the first pending item, so
// the picker hears the enclosing location or machine before the item.
// With no pending work the session starts complete.
func (s *PackSession) Begin() Transition {
	pendingIdx, ok := s.nav.FirstPendingItemIndex()
	if !ok {
		s.position = s.seq.Len()
		s.state = StateComplete
		return Transition{Completed: true, Narrate: s.config.SessionCompletePhrase}
	}

	s.position = s.nav.ContextStartIndex(pendingIdx)
	s.state = StatePlaying
	s.addDomainEvent(&SessionStartedEvent{
		RunID:      s.runID,
		SessionID:  s.sessionID,
		Commands:   s.seq.Len(),
		StartedAt:  time.Now().UTC(),
		PreSeeded:  s.completed.Size(),
		EntryCount: s.seq.EntryCount(),
	})
	return Transition{Narrate: s.seq.At(s.position).NarrationText}
}

// Forward advances the session. While a machine-completion banner is
// pending, forward is overloaded as acknowledge: it consumes the banner
// and moves past it without resolving anything. Otherwise the current
// item's entries are resolved as picked, the completion boundary is
// checked, and the position advances to the next playable command.
func (s *PackSession) Forward() Transition {
	return s.step(true)
}

// Skip is identical to Forward except the resolved entries are synced
// as explicitly not picked.
func (s *PackSession) Skip() Transition {
	return s.step(false)
}

func (s *PackSession) step(picked bool) Transition {
	switch s.state {
	case StateComplete:
		return Transition{}
	case StateMachineComplete:
		// Acknowledge: the banner is consumed, navigation resumes.
		s.pending = nil
		s.state = StatePlaying
		var t Transition
		s.advanceInto(&t, s.position+1)
		return t
	}

	var t Transition
	cur := s.seq.At(s.position)
	if cur.Kind == KindItem && len(cur.PickableEntryIDs) > 0 {
		s.completed.MarkResolved(cur.PickableEntryIDs...)
		t.Sync = &SyncDirective{EntryIDs: cur.PickableEntryIDs, Picked: picked}
		s.addDomainEvent(&ItemResolvedEvent{
			RunID:      s.runID,
			SessionID:  s.sessionID,
			CommandID:  cur.ID,
			EntryIDs:   cur.PickableEntryIDs,
			Picked:     picked,
			ResolvedAt: time.Now().UTC(),
		})
	}

	if ann := s.checkMachineCompletion(cur); ann != nil {
		s.pending = ann
		s.state = StateMachineComplete
		t.Announcement = ann
		t.Narrate = ann.Message
		return t
	}

	s.advanceInto(&t, s.position+1)
	return t
}

// Back moves the position one step back, flooring at zero. While a
// banner is pending back is a dismiss: the banner is cleared and the
// position does not move. Back never un-resolves completed work, and it
// narrates the exact resulting command even if navigation would skip
// it, because the picker explicitly asked for it.
func (s *PackSession) Back() Transition {
	switch s.state {
	case StateComplete:
		return Transition{}
	case StateMachineComplete:
		s.pending = nil
		s.state = StatePlaying
		return Transition{}
	}

	if s.position > 0 {
		s.position--
	}
	return Transition{Narrate: s.seq.At(s.position).NarrationText}
}

// Repeat re-narrates the current command, or the pending banner
// message, without changing position or completion state.
func (s *PackSession) Repeat() Transition {
	switch s.state {
	case StateComplete:
		return Transition{}
	case StateMachineComplete:
		return Transition{Narrate: s.pending.Message}
	}
	return Transition{Narrate: s.seq.At(s.position).NarrationText}
}

// Resume recomputes the position after a pause, re-entering at the
// context boundary of the first still-pending item. A session with no
// pending work resumes complete.
func (s *PackSession) Resume() Transition {
	s.pending = nil

	pendingIdx, ok := s.nav.FirstPendingItemIndex()
	if !ok {
		s.position = s.seq.Len()
		if s.state != StateComplete {
			s.state = StateComplete
			return Transition{Completed: true, Narrate: s.config.SessionCompletePhrase}
		}
		return Transition{}
	}

	s.position = s.nav.ContextStartIndex(pendingIdx)
	s.state = StatePlaying
	return Transition{Narrate: s.seq.At(s.position).NarrationText}
}

// advanceInto moves to the next playable index at or after from,
// transitioning to complete when nothing playable remains.
func (s *PackSession) advanceInto(t *Transition, from int) {
	next, ok := s.nav.NextPlayableIndex(from)
	if !ok {
		s.position = s.seq.Len()
		s.state = StateComplete
		t.Completed = true
		t.Narrate = s.config.SessionCompletePhrase
		s.addDomainEvent(&SessionCompletedEvent{
			RunID:       s.runID,
			SessionID:   s.sessionID,
			CompletedAt: time.Now().UTC(),
		})
		return
	}
	s.position = next
	t.Narrate = s.seq.At(next).NarrationText
}

// checkMachineCompletion raises the machine-completion banner when the
// machine identity of the command just finished has no unresolved items
// left anywhere in the sequence. Each machine identity is announced at
// most once per session.
func (s *PackSession) checkMachineCompletion(cur Command) *Announcement {
	if cur.Kind == KindLocation {
		return nil
	}
	key := IdentityKey(cur, RoleMachine)
	if _, done := s.announced[key]; done {
		return nil
	}
	if s.nav.MachineHasPendingWork(s.position) {
		return nil
	}

	s.announced[key] = struct{}{}
	msg := s.config.AnnouncementFormatter(MachineDesignator(cur), strings.TrimSpace(cur.LocationName))
	s.addDomainEvent(&MachineCompletedEvent{
		RunID:       s.runID,
		SessionID:   s.sessionID,
		MachineKey:  key,
		Message:     msg,
		CompletedAt: time.Now().UTC(),
	})
	return &Announcement{MachineKey: key, Message: msg}
}

// Snapshot is the read-only view handed to the UI layer.
type Snapshot struct {
	RunID           string
	SessionID       string
	State           SessionState
	Position        int
	Total           int
	Current         *Command
	PendingMessage  string
	IsComplete      bool
	ResolvedEntries int
	TotalEntries    int
}

// Snapshot returns the current read-only view of the session.
func (s *PackSession) Snapshot() Snapshot {
	snap := Snapshot{
		RunID:           s.runID,
		SessionID:       s.sessionID,
		State:           s.state,
		Position:        s.position,
		Total:           s.seq.Len(),
		IsComplete:      s.state == StateComplete,
		ResolvedEntries: s.completed.Size(),
		TotalEntries:    s.seq.EntryCount(),
	}
	if s.position < s.seq.Len() {
		cmd := s.seq.At(s.position)
		snap.Current = &cmd
	}
	if s.pending != nil {
		snap.PendingMessage = s.pending.Message
	}
	return snap
}

// RunID returns the run this session belongs to.
func (s *PackSession) RunID() string { return s.runID }

// SessionID returns the remote packing-session id.
func (s *PackSession) SessionID() string { return s.sessionID }

// State returns the current session state.
func (s *PackSession) State() SessionState { return s.state }

// Position returns the current position, Len() when complete.
func (s *PackSession) Position() int { return s.position }

// IsComplete reports whether every playable command is exhausted.
func (s *PackSession) IsComplete() bool { return s.state == StateComplete }

// IsResolved reports whether the pick entry is in the completion set.
func (s *PackSession) IsResolved(entryID string) bool { return s.completed.Contains(entryID) }

// ResolvedCount returns the size of the completion set.
func (s *PackSession) ResolvedCount() int { return s.completed.Size() }

// AddDomainEvent appends a domain event for later publication.
func (s *PackSession) addDomainEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

// GetDomainEvents returns the accumulated domain events.
func (s *PackSession) GetDomainEvents() []DomainEvent {
	return s.domainEvents
}

// ClearDomainEvents clears the accumulated domain events.
func (s *PackSession) ClearDomainEvents() {
	s.domainEvents = nil
}

package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vendroute/packing-player/internal/domain"
	"github.com/vendroute/packing-player/pkg/errors"
	"github.com/vendroute/packing-player/pkg/events"
	"github.com/vendroute/packing-player/pkg/logging"
	"github.com/vendroute/packing-player/pkg/metrics"
)

// Config holds player service tunables.
type Config struct {
	// TelemetryTopic is the Kafka topic session telemetry goes to.
	TelemetryTopic string
	// TerminalCallTimeout bounds the remote finish/abandon call made on
	// natural completion and during Close.
	TerminalCallTimeout time.Duration
	// TerminalWaitTimeout bounds how long a second concurrent caller
	// waits for an in-flight finish/abandon to resolve.
	TerminalWaitTimeout time.Duration
	// TerminalPollInterval is the sleep between latch polls.
	TerminalPollInterval time.Duration
	// WatcherBuffer is the snapshot channel capacity per watcher.
	WatcherBuffer int
	// SessionConfig carries the spoken phrasing; nil means the stock
	// English phrases.
	SessionConfig *domain.SessionConfig
}

// DefaultConfig returns default player service configuration.
func DefaultConfig() *Config {
	return &Config{
		TelemetryTopic:       "player.session.events",
		TerminalCallTimeout:  10 * time.Second,
		TerminalWaitTimeout:  15 * time.Second,
		TerminalPollInterval: 50 * time.Millisecond,
		WatcherBuffer:        8,
	}
}

// terminalLatch guarantees at most one finish/abandon call per session.
// The winner records the outcome; later callers read it back.
type terminalLatch struct {
	mu       sync.Mutex
	inFlight bool
	done     bool
	result   *TerminalResult
	err      error
}

func (l *terminalLatch) tryBegin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight || l.done {
		return false
	}
	l.inFlight = true
	return true
}

func (l *terminalLatch) record(result *TerminalResult, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false
	l.done = true
	l.result = result
	l.err = err
}

func (l *terminalLatch) outcome() (*TerminalResult, error, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, l.err, l.done
}

// await sleep-polls until the in-flight call resolves or the bound is
// hit. The bound exists so a hung backend call cannot wedge callers.
func (l *terminalLatch) await(poll, timeout time.Duration) (*TerminalResult, error, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if result, err, done := l.outcome(); done {
			return result, err, true
		}
		if time.Now().After(deadline) {
			return nil, nil, false
		}
		time.Sleep(poll)
	}
}

// sessionRuntime is one registered session: the aggregate, its load-time
// extras, the terminal latch, and the watcher fan-out. All transitions
// on the aggregate run under mu.
type sessionRuntime struct {
	mu       sync.Mutex
	session  *domain.PackSession
	boxes    []ChocolateBox
	latch    terminalLatch
	watchers map[int]chan SessionSnapshot
	nextID   int
}

// PlayerApplicationService is the session lifecycle controller. It
// loads sessions from the fulfillment backend, drives the domain state
// machine, executes transition effects (narration, best-effort pick
// sync, telemetry), and owns the finish/abandon latch.
type PlayerApplicationService struct {
	gateway   FulfillmentGateway
	narrator  Narrator
	publisher TelemetryPublisher
	factory   *events.EventFactory
	logger    *logging.Logger
	metrics   *metrics.Metrics
	config    *Config

	mu       sync.RWMutex
	sessions map[string]*sessionRuntime

	speaking atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// NewPlayerApplicationService creates the lifecycle controller and
// starts folding narrator events into the is-speaking flag.
func NewPlayerApplicationService(
	gateway FulfillmentGateway,
	narrator Narrator,
	publisher TelemetryPublisher,
	factory *events.EventFactory,
	logger *logging.Logger,
	m *metrics.Metrics,
	config *Config,
) *PlayerApplicationService {
	if config == nil {
		config = DefaultConfig()
	}
	s := &PlayerApplicationService{
		gateway:   gateway,
		narrator:  narrator,
		publisher: publisher,
		factory:   factory,
		logger:    logger.WithComponent("player-service"),
		metrics:   m,
		config:    config,
		sessions:  make(map[string]*sessionRuntime),
	}
	go s.foldNarrationEvents()
	return s
}

// foldNarrationEvents runs until the narrator closes its event channel.
// It is deliberately not tracked in wg: the narrator's lifetime is
// owned by the caller, not by Close.
func (s *PlayerApplicationService) foldNarrationEvents() {
	for event := range s.narrator.Events() {
		switch event.Kind {
		case NarrationStarted:
			s.speaking.Store(true)
		case NarrationFinished, NarrationCancelled:
			s.speaking.Store(false)
		}
	}
	s.speaking.Store(false)
}

// StartSession loads the command sequence, run detail, and chocolate
// boxes concurrently, seeds already-picked entries, registers the
// session, and begins playback. A sequence or run-detail failure
// best-effort abandons the remote session before returning.
func (s *PlayerApplicationService) StartSession(ctx context.Context, cmd StartSessionCommand) (*SessionSnapshot, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, errors.ErrServiceUnavailable("packing player")
	}

	s.mu.RLock()
	_, exists := s.sessions[cmd.PackingSessionID]
	s.mu.RUnlock()
	if exists {
		return nil, errors.ErrConflict("session already playing").WithDetail("sessionId", cmd.PackingSessionID)
	}

	log := s.logger.WithSession(cmd.RunID, cmd.PackingSessionID)

	var (
		payload *CommandSequencePayload
		detail  *RunDetail
		boxes   []ChocolateBox

		seqErr    error
		detailErr error
		boxErr    error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		payload, seqErr = s.gateway.FetchCommandSequence(ctx, cmd.RunID, cmd.PackingSessionID)
	}()
	go func() {
		defer wg.Done()
		detail, detailErr = s.gateway.FetchRunDetail(ctx, cmd.RunID)
	}()
	go func() {
		defer wg.Done()
		boxes, boxErr = s.gateway.FetchChocolateBoxes(ctx, cmd.RunID)
	}()
	wg.Wait()

	if seqErr != nil || detailErr != nil {
		err := seqErr
		if err == nil {
			err = detailErr
		}
		log.WithError(err).Error("Session load failed, abandoning remote session")
		if _, abandonErr := s.gateway.AbandonSession(ctx, cmd.RunID, cmd.PackingSessionID); abandonErr != nil {
			log.WithError(abandonErr).Warn("Abandon after failed load also failed")
		}
		return nil, errors.ErrUpstream("session load").Wrap(err)
	}
	if boxErr != nil {
		// Boxes are display-only, a failed fetch never blocks playback.
		log.WithError(boxErr).Warn("Chocolate box fetch failed")
		boxes = nil
	}

	seq, err := domain.NewCommandSequence(payload.Commands)
	if err != nil {
		log.WithError(err).Error("Command sequence rejected")
		if _, abandonErr := s.gateway.AbandonSession(ctx, cmd.RunID, cmd.PackingSessionID); abandonErr != nil {
			log.WithError(abandonErr).Warn("Abandon after rejected sequence also failed")
		}
		return nil, errors.MapDomainError(err)
	}

	session := domain.NewPackSession(cmd.RunID, cmd.PackingSessionID, seq, s.config.SessionConfig)
	picked := make([]string, 0, len(detail.Entries))
	for _, entry := range detail.Entries {
		if entry.Picked {
			picked = append(picked, entry.ID)
		}
	}
	seeded := session.SeedResolved(picked)

	rt := &sessionRuntime{
		session:  session,
		boxes:    boxes,
		watchers: make(map[int]chan SessionSnapshot),
	}

	s.mu.Lock()
	if _, exists := s.sessions[cmd.PackingSessionID]; exists {
		s.mu.Unlock()
		return nil, errors.ErrConflict("session already playing").WithDetail("sessionId", cmd.PackingSessionID)
	}
	s.sessions[cmd.PackingSessionID] = rt
	s.mu.Unlock()

	rt.mu.Lock()
	transition := session.Begin()
	// A session loaded with no pending work starts complete, but finish
	// is only sent on Stop so the picker confirms the empty run.
	snapshot := s.applyTransition(ctx, rt, transition, false)
	rt.mu.Unlock()

	s.metrics.SessionsStarted.Inc()
	log.Info("Session started",
		"commands", seq.Len(),
		"entries", seq.EntryCount(),
		"preSeeded", seeded,
	)
	return snapshot, nil
}

// Forward advances playback, or acknowledges a pending announcement.
func (s *PlayerApplicationService) Forward(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	return s.transition(ctx, sessionID, func(session *domain.PackSession) domain.Transition {
		return session.Forward()
	})
}

// Skip resolves the current item as explicitly not picked. Skip is
// rejected while narration is in flight so the picker cannot skip an
// item they have not heard yet.
func (s *PlayerApplicationService) Skip(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	if s.speaking.Load() {
		return nil, errors.ErrConflict("narration in progress, skip not accepted")
	}
	return s.transition(ctx, sessionID, func(session *domain.PackSession) domain.Transition {
		return session.Skip()
	})
}

// Back moves one step back, or dismisses a pending announcement.
func (s *PlayerApplicationService) Back(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	return s.transition(ctx, sessionID, func(session *domain.PackSession) domain.Transition {
		return session.Back()
	})
}

// Repeat re-narrates the current command without changing state.
func (s *PlayerApplicationService) Repeat(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	return s.transition(ctx, sessionID, func(session *domain.PackSession) domain.Transition {
		return session.Repeat()
	})
}

// Pause interrupts narration. Position and completion are untouched.
func (s *PlayerApplicationService) Pause(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}
	s.narrator.Stop()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	snapshot := s.snapshotLocked(rt)
	s.notifyWatchersLocked(rt, snapshot)
	return snapshot, nil
}

// Resume recomputes the position from the completion set and re-enters
// at the context boundary of the first pending item.
func (s *PlayerApplicationService) Resume(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	return s.transition(ctx, sessionID, func(session *domain.PackSession) domain.Transition {
		return session.Resume()
	})
}

func (s *PlayerApplicationService) transition(ctx context.Context, sessionID string, step func(*domain.PackSession) domain.Transition) (*SessionSnapshot, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	t := step(rt.session)
	return s.applyTransition(ctx, rt, t, true), nil
}

// applyTransition executes a transition's effects: pick-status sync,
// narration, telemetry, metrics, watcher notification, and the finish
// call on natural completion. Called with rt.mu held.
func (s *PlayerApplicationService) applyTransition(ctx context.Context, rt *sessionRuntime, t domain.Transition, autoFinish bool) *SessionSnapshot {
	session := rt.session
	log := s.logger.WithSession(session.RunID(), session.SessionID())

	if t.Sync != nil {
		if err := s.gateway.UpdatePickStatuses(ctx, session.RunID(), t.Sync.EntryIDs, t.Sync.Picked); err != nil {
			// Best-effort: the local completion set is authoritative for
			// navigation, divergence is surfaced through the counter.
			s.metrics.PickSyncFailures.Inc()
			log.WithError(err).Warn("Pick status sync failed", "entries", len(t.Sync.EntryIDs), "picked", t.Sync.Picked)
		}
		if t.Sync.Picked {
			s.metrics.ItemsPacked.Inc()
		} else {
			s.metrics.ItemsSkipped.Inc()
		}
	}

	if t.Announcement != nil {
		s.metrics.MachinesCompleted.Inc()
	}

	if t.Narrate != "" {
		s.metrics.RecordNarrationStarted()
		if err := s.narrator.Speak(ctx, t.Narrate); err != nil {
			s.metrics.RecordNarrationFailure()
			log.WithError(err).Warn("Narration failed")
		}
	}

	s.publishDomainEvents(session)

	if t.Completed && autoFinish {
		s.finalizeAsync(rt)
	}

	snapshot := s.snapshotLocked(rt)
	s.notifyWatchersLocked(rt, snapshot)
	return snapshot
}

// finalizeAsync sends the finish call on natural completion without
// blocking the transition response. A Stop racing with this goes
// through the same latch and reads back the recorded result.
func (s *PlayerApplicationService) finalizeAsync(rt *sessionRuntime) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.config.TerminalCallTimeout)
		defer cancel()
		s.finalize(ctx, rt, true)
	}()
}

// finalize sends finish or abandon through the terminal latch. Exactly
// one remote call is made per session; a concurrent second caller polls
// until the in-flight call resolves and returns its recorded outcome.
func (s *PlayerApplicationService) finalize(ctx context.Context, rt *sessionRuntime, finish bool) (*TerminalResult, error) {
	session := rt.session
	log := s.logger.WithSession(session.RunID(), session.SessionID())

	if rt.latch.tryBegin() {
		var result *TerminalResult
		var err error
		if finish {
			result, err = s.gateway.FinishSession(ctx, session.RunID(), session.SessionID())
		} else {
			result, err = s.gateway.AbandonSession(ctx, session.RunID(), session.SessionID())
		}
		rt.latch.record(result, err)

		if err != nil {
			log.WithError(err).Error("Terminal call failed", "finish", finish)
			return nil, err
		}

		eventType := events.SessionAbandoned
		if finish {
			eventType = events.SessionFinished
			s.metrics.SessionsFinished.Inc()
		} else {
			s.metrics.SessionsAbandoned.Inc()
		}
		s.publishTelemetry(session.RunID(), session.SessionID(), eventType, &events.SessionTerminatedData{
			RunID:          session.RunID(),
			SessionID:      session.SessionID(),
			Status:         result.Status,
			ClearedEntries: result.ClearedEntries,
		})
		log.Info("Session terminated", "status", result.Status, "clearedEntries", result.ClearedEntries)
		return result, nil
	}

	result, err, resolved := rt.latch.await(s.config.TerminalPollInterval, s.config.TerminalWaitTimeout)
	if !resolved {
		return nil, errors.ErrServiceUnavailable("session finalization")
	}
	return result, err
}

// Stop terminates the session: finish when playback is complete,
// abandon otherwise. Local state is cleared even when the remote call
// fails; the backend owns all durable state.
func (s *PlayerApplicationService) Stop(ctx context.Context, sessionID string) (*StopResult, error) {
	return s.terminate(ctx, sessionID, true)
}

// Abandon terminates the session as abandoned regardless of progress.
func (s *PlayerApplicationService) Abandon(ctx context.Context, sessionID string) (*StopResult, error) {
	return s.terminate(ctx, sessionID, false)
}

func (s *PlayerApplicationService) terminate(ctx context.Context, sessionID string, finishIfComplete bool) (*StopResult, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	s.narrator.Stop()

	rt.mu.Lock()
	finish := finishIfComplete && rt.session.IsComplete()
	rt.mu.Unlock()

	result, callErr := s.finalize(ctx, rt, finish)
	s.deregister(sessionID)

	if callErr != nil {
		if appErr, ok := errors.AsAppError(callErr); ok {
			return nil, appErr
		}
		return nil, errors.ErrUpstream("session termination").Wrap(callErr)
	}
	return &StopResult{
		SessionID:      sessionID,
		Status:         result.Status,
		ClearedEntries: result.ClearedEntries,
	}, nil
}

func (s *PlayerApplicationService) deregister(sessionID string) {
	s.mu.Lock()
	rt, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	rt.mu.Lock()
	for id, ch := range rt.watchers {
		close(ch)
		delete(rt.watchers, id)
	}
	rt.mu.Unlock()
}

// State returns the current snapshot for a registered session.
func (s *PlayerApplicationService) State(sessionID string) (*SessionSnapshot, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return s.snapshotLocked(rt), nil
}

// Watch registers a snapshot observer. The channel receives a snapshot
// after every transition and is closed when the session terminates or
// the returned cancel function runs. Slow observers miss snapshots
// rather than block transitions.
func (s *PlayerApplicationService) Watch(sessionID string) (<-chan SessionSnapshot, func(), error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan SessionSnapshot, s.config.WatcherBuffer)

	rt.mu.Lock()
	id := rt.nextID
	rt.nextID++
	rt.watchers[id] = ch
	rt.mu.Unlock()

	cancel := func() {
		rt.mu.Lock()
		if existing, ok := rt.watchers[id]; ok {
			delete(rt.watchers, id)
			close(existing)
		}
		rt.mu.Unlock()
	}
	return ch, cancel, nil
}

// Close abandons every still-open session. Shutdown without an explicit
// stop abandons, so a crashed or killed player never leaves a session
// half-finished on the backend.
func (s *PlayerApplicationService) Close(ctx context.Context) error {
	s.closed.Store(true)
	s.narrator.Stop()

	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if _, err := s.Abandon(ctx, id); err != nil {
			s.logger.WithError(err).Warn("Abandon during shutdown failed", "sessionId", id)
		}
	}

	// Drain in-flight telemetry and finalizer goroutines, bounded by
	// the shutdown context, so graceful shutdown does not drop events.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Shutdown deadline reached before telemetry drained")
		return ctx.Err()
	}
}

func (s *PlayerApplicationService) runtime(sessionID string) (*sessionRuntime, *errors.AppError) {
	s.mu.RLock()
	rt, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrNotFoundWithID("session", sessionID)
	}
	return rt, nil
}

func (s *PlayerApplicationService) snapshotLocked(rt *sessionRuntime) *SessionSnapshot {
	snap := rt.session.Snapshot()
	return &SessionSnapshot{
		RunID:           snap.RunID,
		SessionID:       snap.SessionID,
		State:           string(snap.State),
		Position:        snap.Position,
		Total:           snap.Total,
		Current:         toCommandView(snap.Current),
		PendingMessage:  snap.PendingMessage,
		IsComplete:      snap.IsComplete,
		IsSpeaking:      s.speaking.Load(),
		ResolvedEntries: snap.ResolvedEntries,
		TotalEntries:    snap.TotalEntries,
		ChocolateBoxes:  toBoxViews(rt.boxes),
	}
}

func (s *PlayerApplicationService) notifyWatchersLocked(rt *sessionRuntime, snapshot *SessionSnapshot) {
	for _, ch := range rt.watchers {
		select {
		case ch <- *snapshot:
		default:
		}
	}
}

func (s *PlayerApplicationService) publishDomainEvents(session *domain.PackSession) {
	domainEvents := session.GetDomainEvents()
	if len(domainEvents) == 0 {
		return
	}
	session.ClearDomainEvents()
	for _, de := range domainEvents {
		s.publishTelemetry(session.RunID(), session.SessionID(), de.EventType(), de)
	}
}

// publishTelemetry is best-effort with a short deadline of its own so a
// slow broker never stalls a navigation call.
func (s *PlayerApplicationService) publishTelemetry(runID, sessionID, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	event := s.factory.CreateSessionEvent(eventType, runID, sessionID, data)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishEvent(ctx, s.config.TelemetryTopic, event); err != nil {
			s.metrics.RecordKafkaEventPublished(s.config.TelemetryTopic, eventType, "error")
			s.logger.WithError(err).Warn("Telemetry publish failed", "eventType", eventType)
			return
		}
		s.metrics.RecordKafkaEventPublished(s.config.TelemetryTopic, eventType, "success")
	}()
}

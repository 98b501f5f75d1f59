// Package session owns the lookup state and history for one user session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yegors/wmo-decoder/internal/history"
	"github.com/yegors/wmo-decoder/internal/query"
	"github.com/yegors/wmo-decoder/internal/translator"
	"github.com/yegors/wmo-decoder/internal/wxcode"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

var (
	// ErrBusy is returned when a request is already in flight
	ErrBusy = errors.New("a translation is already in progress")
	// ErrEmptyQuery is returned for blank input; no request is made
	ErrEmptyQuery = errors.New("query is empty")
	// ErrNotFound is returned when selecting an unknown history entry
	ErrNotFound = errors.New("history entry not found")
)

// Translator is the requester the session delegates to
type Translator interface {
	Translate(ctx context.Context, query string) (*wxcode.Record, error)
}

// Snapshot is a consistent copy of the session
type Snapshot struct {
	Version uint64                `json:"version"`
	State   State                 `json:"state"`
	History []wxcode.HistoryEntry `json:"history"`
}

// Observer is notified after every transition
type Observer func(Snapshot)

// Session serialises submissions so only one request is ever in flight
type Session struct {
	mu         sync.Mutex
	state      State
	version    uint64
	history    *history.Keeper
	translator Translator
	observers  []Observer
	inflight   sync.WaitGroup
	now        func() time.Time
	logger     *logger.Logger
}

// New creates a session backed by translator
func New(t Translator, keeper *history.Keeper, log *logger.Logger) *Session {
	if keeper == nil {
		keeper = history.NewKeeper(history.DefaultCapacity)
	}
	return &Session{
		history:    keeper,
		translator: t,
		now:        time.Now,
		logger:     log.Named("session"),
	}
}

// OnChange registers an observer. Not safe to call concurrently with transitions.
func (s *Session) OnChange(o Observer) {
	s.observers = append(s.observers, o)
}

// Submit runs one translation and waits for it to settle
func (s *Session) Submit(ctx context.Context, raw string) (*wxcode.Record, error) {
	q, err := s.begin(raw)
	if err != nil {
		return nil, err
	}
	defer s.inflight.Done()
	return s.run(ctx, q)
}

// Start begins a translation and returns once the loading state is set.
// The request settles in the background.
func (s *Session) Start(ctx context.Context, raw string) error {
	q, err := s.begin(raw)
	if err != nil {
		return err
	}
	go func() {
		defer s.inflight.Done()
		s.run(ctx, q)
	}()
	return nil
}

// Wait blocks until no request is in flight
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) begin(raw string) (string, error) {
	q, ok := query.Accept(raw)
	if !ok {
		return "", ErrEmptyQuery
	}

	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		s.logger.Debug("Submission ignored while loading", logger.String("query", raw))
		return "", ErrBusy
	}
	s.inflight.Add(1)
	snap := s.applyLocked(Event{Type: EventSubmitted})
	s.mu.Unlock()

	s.notify(snap)
	return q, nil
}

// run performs the request. It is detached from ctx cancellation so a
// submitted request always settles and clears the loading flag.
func (s *Session) run(ctx context.Context, q string) (*wxcode.Record, error) {
	rec, err := s.translator.Translate(context.WithoutCancel(ctx), q)

	s.mu.Lock()
	var snap Snapshot
	if err != nil {
		werr := wxcode.AsError(err, translator.MsgTransportFailure)
		snap = s.applyLocked(Event{Type: EventFailed, Err: werr})
		err = werr
		rec = nil
	} else {
		s.history.Add(rec, s.now())
		snap = s.applyLocked(Event{Type: EventSucceeded, Record: rec})
	}
	s.mu.Unlock()

	s.notify(snap)
	return rec, err
}

// Select makes a history entry the current result without a new request
func (s *Session) Select(id string) (*wxcode.Record, error) {
	entry, ok := s.history.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	rec := entry.Record
	snap := s.applyLocked(Event{Type: EventSelected, Record: &rec})
	s.mu.Unlock()

	s.notify(snap)
	return rec.Clone(), nil
}

// Snapshot returns the current state and history
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// History returns the retained lookups, newest first
func (s *Session) History() []wxcode.HistoryEntry {
	return s.history.List()
}

func (s *Session) applyLocked(e Event) Snapshot {
	s.state = Reduce(s.state, e)
	s.version++
	s.logger.Debug("Session transition",
		logger.String("event", e.Type.String()),
		logger.String("active", s.state.Active()))
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.state
	st.Result = st.Result.Clone()
	return Snapshot{
		Version: s.version,
		State:   st,
		History: s.history.List(),
	}
}

func (s *Session) notify(snap Snapshot) {
	for _, o := range s.observers {
		o(snap)
	}
}

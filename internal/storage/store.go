// Package storage persists the admission event collection. Every mutation is
// a full read-modify-write of the medium: load everything, change it in
// memory, write everything back.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// LoadReport describes how a load went. Dropped rows are a diagnostic, not
// an error.
type LoadReport struct {
	Missing bool
	Rows    int
	Dropped int
}

// Snapshot is the full content of a medium
type Snapshot struct {
	Events []events.Event
	// LastID is the highest id ever handed out, including deleted ones
	LastID int
	Report LoadReport
}

// Medium is a persisted home for the event collection
type Medium interface {
	// Load reads the whole collection. A medium that does not exist yet
	// yields an empty snapshot with Report.Missing set.
	Load(ctx context.Context) (Snapshot, error)
	// Save replaces the whole collection
	Save(ctx context.Context, snap Snapshot) error
	// Describe names the medium for logs
	Describe() string
}

// EventStore owns the canonical event collection
type EventStore struct {
	medium Medium
	logger *zap.Logger

	// mu serialises read-modify-write cycles inside this process only.
	// Separate processes sharing a medium still race; the last save wins.
	mu sync.Mutex
}

// New creates an EventStore over medium
func New(medium Medium, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{medium: medium, logger: logger}
}

// Describe names the underlying medium
func (s *EventStore) Describe() string {
	return s.medium.Describe()
}

func (s *EventStore) load(ctx context.Context) (Snapshot, error) {
	snap, err := s.medium.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load events from %s: %w", s.medium.Describe(), err)
	}
	if snap.Report.Dropped > 0 {
		s.logger.Warn("dropped unreadable event rows",
			zap.String("medium", s.medium.Describe()),
			zap.Int("rows", snap.Report.Rows),
			zap.Int("dropped", snap.Report.Dropped),
		)
	}
	if highest := events.NextID(snap.Events) - 1; highest > snap.LastID {
		snap.LastID = highest
	}
	return snap, nil
}

func (s *EventStore) save(ctx context.Context, snap Snapshot) error {
	if err := checkIDs(snap.Events); err != nil {
		return err
	}
	if err := s.medium.Save(ctx, snap); err != nil {
		return fmt.Errorf("save events to %s: %w", s.medium.Describe(), err)
	}
	s.logger.Debug("saved events",
		zap.String("medium", s.medium.Describe()),
		zap.Int("count", len(snap.Events)),
	)
	return nil
}

// checkIDs rejects collections a medium could not read back intact: every
// id must be positive and unique
func checkIDs(evs []events.Event) error {
	seen := make(map[int]struct{}, len(evs))
	for _, e := range evs {
		if e.ID <= 0 {
			return fmt.Errorf("%w: event id %d is not positive", events.ErrInvalidEvent, e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: event id %d is repeated", events.ErrInvalidEvent, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// LoadAll returns every stored event in stored order
func (s *EventStore) LoadAll(ctx context.Context) ([]events.Event, error) {
	evs, _, err := s.LoadAllWithReport(ctx)
	return evs, err
}

// LoadAllWithReport is LoadAll plus the load diagnostics
func (s *EventStore) LoadAllWithReport(ctx context.Context) ([]events.Event, LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, LoadReport{}, err
	}
	return snap.Events, snap.Report, nil
}

// SaveAll overwrites the medium with evs. The id high-water mark already
// on the medium is kept so deleted ids stay retired. A collection with a
// non-positive or repeated id is rejected with events.ErrInvalidEvent and
// nothing is written.
func (s *EventStore) SaveAll(ctx context.Context, evs []events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}
	snap := Snapshot{Events: evs, LastID: current.LastID}
	if highest := events.NextID(evs) - 1; highest > snap.LastID {
		snap.LastID = highest
	}
	return s.save(ctx, snap)
}

// mutate runs one load, change, save cycle under the store lock
func (s *EventStore) mutate(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&snap); err != nil {
		return err
	}
	return s.save(ctx, snap)
}

// Get returns one event by id
func (s *EventStore) Get(ctx context.Context, id int) (events.Event, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return events.Event{}, err
	}
	idx := events.IndexOf(all, id)
	if idx < 0 {
		return events.Event{}, events.ErrNotFound
	}
	return all[idx], nil
}

// Add appends e with a fresh id and order and returns the stored event.
// Ids are never reused: a deleted maximum id stays retired.
func (s *EventStore) Add(ctx context.Context, e events.Event) (events.Event, error) {
	err := s.mutate(ctx, func(snap *Snapshot) error {
		e.ID = events.NextID(snap.Events)
		if e.ID <= snap.LastID {
			e.ID = snap.LastID + 1
		}
		e.Order = events.NextOrder(snap.Events)
		e.StartDate = events.DateOf(e.StartDate)
		e.EndDate = events.DateOf(e.EndDate)

		snap.Events = append(snap.Events, e)
		snap.LastID = e.ID
		return nil
	})
	if err != nil {
		return events.Event{}, err
	}
	return e, nil
}

// Update applies patch to the event with id, keeping its identity
func (s *EventStore) Update(ctx context.Context, id int, patch events.Patch) (events.Event, error) {
	return s.UpdateChecked(ctx, id, patch, nil)
}

// UpdateChecked is Update with check run on the patched event inside the
// same load, change, save cycle. A check error aborts the save and is
// returned as is.
func (s *EventStore) UpdateChecked(ctx context.Context, id int, patch events.Patch, check func(events.Event) error) (events.Event, error) {
	var updated events.Event
	err := s.mutate(ctx, func(snap *Snapshot) error {
		idx := events.IndexOf(snap.Events, id)
		if idx < 0 {
			return events.ErrNotFound
		}
		next := patch.Apply(snap.Events[idx])
		if check != nil {
			if err := check(next); err != nil {
				return err
			}
		}
		updated = next
		snap.Events[idx] = updated
		return nil
	})
	if err != nil {
		return events.Event{}, err
	}
	return updated, nil
}

// Delete removes the event with id. The id is not handed out again.
func (s *EventStore) Delete(ctx context.Context, id int) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		idx := events.IndexOf(snap.Events, id)
		if idx < 0 {
			return events.ErrNotFound
		}
		snap.Events = append(snap.Events[:idx], snap.Events[idx+1:]...)
		return nil
	})
}

// SwapOrder exchanges the Order values of two events
func (s *EventStore) SwapOrder(ctx context.Context, idA, idB int) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		a := events.IndexOf(snap.Events, idA)
		b := events.IndexOf(snap.Events, idB)
		if a < 0 || b < 0 {
			return events.ErrNotFound
		}
		snap.Events[a].Order, snap.Events[b].Order = snap.Events[b].Order, snap.Events[a].Order
		return nil
	})
}

// Move shifts an event one step up or down within its program
func (s *EventStore) Move(ctx context.Context, id int, dir events.Direction) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		reordered, err := events.Reorder(snap.Events, id, dir)
		if err != nil {
			return err
		}
		snap.Events = reordered
		return nil
	})
}

// PurgeClosed deletes every event that closed before today and reports how
// many were removed
func (s *EventStore) PurgeClosed(ctx context.Context, today time.Time) (int, error) {
	removed := 0
	err := s.mutate(ctx, func(snap *Snapshot) error {
		kept := snap.Events[:0]
		for _, e := range snap.Events {
			if events.StatusAt(e, today) == events.StatusClosed {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		snap.Events = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged closed events", zap.Int("removed", removed))
	}
	return removed, nil
}

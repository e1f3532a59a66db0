package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// media runs a test against every medium
func media(t *testing.T) map[string]func(t *testing.T) *EventStore {
	return map[string]func(t *testing.T) *EventStore{
		"csv": func(t *testing.T) *EventStore {
			path := filepath.Join(t.TempDir(), "events.csv")
			return New(NewCSVFile(path, true, zap.NewNop()), zap.NewNop())
		},
		"sqlite": func(t *testing.T) *EventStore {
			db, err := OpenSQLite(filepath.Join(t.TempDir(), "board.db"), zap.NewNop())
			if err != nil {
				t.Fatalf("OpenSQLite() failed: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			return New(db, zap.NewNop())
		},
	}
}

func keamApplication() events.Event {
	return events.Event{
		Program:   events.ProgramKEAM,
		Category:  events.CategoryOnlineApplication,
		Title:     "Online application opens",
		StartDate: events.NewDate(2025, 1, 1),
		EndDate:   events.NewDate(2025, 1, 31),
		AllDay:    true,
	}
}

func TestEmptyStore(t *testing.T) {
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			evs, report, err := store.LoadAllWithReport(context.Background())
			if err != nil {
				t.Fatalf("LoadAll() failed: %v", err)
			}
			if len(evs) != 0 {
				t.Errorf("Expected empty collection, got %d events", len(evs))
			}
			if name == "csv" && !report.Missing {
				t.Error("Expected missing medium to be reported")
			}
		})
	}
}

func TestAddAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			added, err := store.Add(ctx, keamApplication())
			if err != nil {
				t.Fatalf("Add() failed: %v", err)
			}
			if added.ID != 1 || added.Order != 1 {
				t.Errorf("Expected id 1 order 1, got id %d order %d", added.ID, added.Order)
			}

			evs, err := store.LoadAll(ctx)
			if err != nil {
				t.Fatalf("LoadAll() failed: %v", err)
			}
			if len(evs) != 1 || evs[0].ID != 1 {
				t.Fatalf("Expected one event with id 1, got %+v", evs)
			}
			got := evs[0]
			if got.Program != events.ProgramKEAM || got.Title != "Online application opens" || !got.AllDay {
				t.Errorf("Event did not round-trip: %+v", got)
			}
			if !got.StartDate.Equal(events.NewDate(2025, 1, 1)) || !got.EndDate.Equal(events.NewDate(2025, 1, 31)) {
				t.Errorf("Dates did not round-trip: %s %s", got.StartDate, got.EndDate)
			}
		})
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			first, err := store.Add(ctx, keamApplication())
			if err != nil {
				t.Fatal(err)
			}
			if err := store.Delete(ctx, first.ID); err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			second, err := store.Add(ctx, keamApplication())
			if err != nil {
				t.Fatal(err)
			}
			if second.ID != 2 {
				t.Errorf("Expected id 2 after delete, got %d", second.ID)
			}
		})
	}
}

func TestIDsArePairwiseDistinct(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			for i := 0; i < 5; i++ {
				if _, err := store.Add(ctx, keamApplication()); err != nil {
					t.Fatal(err)
				}
			}
			if err := store.Delete(ctx, 3); err != nil {
				t.Fatal(err)
			}
			if _, err := store.Add(ctx, keamApplication()); err != nil {
				t.Fatal(err)
			}

			evs, err := store.LoadAll(ctx)
			if err != nil {
				t.Fatal(err)
			}
			seen := make(map[int]bool)
			for _, e := range evs {
				if seen[e.ID] {
					t.Errorf("Duplicate id %d", e.ID)
				}
				seen[e.ID] = true
			}
			next := events.NextID(evs)
			for _, e := range evs {
				if next <= e.ID {
					t.Errorf("NextID %d does not exceed %d", next, e.ID)
				}
			}
		})
	}
}

func TestUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			added, err := store.Add(ctx, keamApplication())
			if err != nil {
				t.Fatal(err)
			}

			category := events.CategoryFinalAllotment
			title := "Final allotment published"
			updated, err := store.Update(ctx, added.ID, events.Patch{Category: &category, Title: &title})
			if err != nil {
				t.Fatalf("Update() failed: %v", err)
			}
			if updated.ID != added.ID || updated.Order != added.Order {
				t.Error("Update changed identity or order")
			}

			got, err := store.Get(ctx, added.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Category != events.CategoryFinalAllotment || got.Title != title {
				t.Errorf("Update not persisted: %+v", got)
			}
		})
	}
}

func TestUpdateCheckedSeesStoredEvent(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			added, err := store.Add(ctx, keamApplication())
			if err != nil {
				t.Fatal(err)
			}

			// Another edit lands first and moves the start past the new end
			start := events.NewDate(2025, 2, 10)
			if _, err := store.Update(ctx, added.ID, events.Patch{StartDate: &start}); err != nil {
				t.Fatal(err)
			}

			end := events.NewDate(2025, 2, 5)
			_, err = store.UpdateChecked(ctx, added.ID, events.Patch{EndDate: &end}, events.Validate)
			if !errors.Is(err, events.ErrInvalidEvent) {
				t.Fatalf("Expected ErrInvalidEvent, got %v", err)
			}
			got, err := store.Get(ctx, added.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !got.EndDate.Equal(added.EndDate) {
				t.Errorf("Rejected update was saved: end date %s", got.EndDate.Format(events.DateLayout))
			}

			end = events.NewDate(2025, 2, 20)
			updated, err := store.UpdateChecked(ctx, added.ID, events.Patch{EndDate: &end}, events.Validate)
			if err != nil {
				t.Fatalf("UpdateChecked() failed: %v", err)
			}
			if !updated.StartDate.Equal(start) || !updated.EndDate.Equal(end) {
				t.Errorf("Unexpected updated event %+v", updated)
			}
		})
	}
}

func TestLookupMisses(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			if _, err := store.Add(ctx, keamApplication()); err != nil {
				t.Fatal(err)
			}

			title := "x"
			checks := map[string]error{
				"get":    func() error { _, err := store.Get(ctx, 42); return err }(),
				"update": func() error { _, err := store.Update(ctx, 42, events.Patch{Title: &title}); return err }(),
				"delete": store.Delete(ctx, 42),
				"swap":   store.SwapOrder(ctx, 1, 42),
				"move":   store.Move(ctx, 42, events.Up),
			}
			for op, err := range checks {
				if !errors.Is(err, events.ErrNotFound) {
					t.Errorf("%s: expected ErrNotFound, got %v", op, err)
				}
			}
		})
	}
}

func TestSwapAndMove(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			a, _ := store.Add(ctx, keamApplication())
			b, _ := store.Add(ctx, keamApplication())

			if err := store.Move(ctx, b.ID, events.Up); err != nil {
				t.Fatalf("Move() failed: %v", err)
			}
			gotA, _ := store.Get(ctx, a.ID)
			gotB, _ := store.Get(ctx, b.ID)
			if gotA.Order != 2 || gotB.Order != 1 {
				t.Errorf("Expected orders 2,1 after move, got %d,%d", gotA.Order, gotB.Order)
			}

			if err := store.SwapOrder(ctx, a.ID, b.ID); err != nil {
				t.Fatalf("SwapOrder() failed: %v", err)
			}
			gotA, _ = store.Get(ctx, a.ID)
			gotB, _ = store.Get(ctx, b.ID)
			if gotA.Order != 1 || gotB.Order != 2 {
				t.Errorf("Expected orders 1,2 after swap, got %d,%d", gotA.Order, gotB.Order)
			}
		})
	}
}

func TestSaveAllRoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	today := events.NewDate(2025, 1, 10)
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			timed := keamApplication()
			timed.AllDay = false
			timed.StartTime = "10:00 AM"
			timed.EndTime = "4:30 PM"
			for _, e := range []events.Event{keamApplication(), timed} {
				if _, err := store.Add(ctx, e); err != nil {
					t.Fatal(err)
				}
			}

			once := roundTrip(t, store)
			twice := roundTrip(t, store)

			v1 := events.VisibleToUser(once, today)
			v2 := events.VisibleToUser(twice, today)
			if len(v1) != len(v2) {
				t.Fatalf("Visible count changed: %d vs %d", len(v1), len(v2))
			}
			for i := range v1 {
				if v1[i] != v2[i] {
					t.Errorf("Event %d changed across round trips: %+v vs %+v", i, v1[i], v2[i])
				}
			}
		})
	}
}

func roundTrip(t *testing.T, store *EventStore) []events.Event {
	t.Helper()
	ctx := context.Background()
	evs, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveAll(ctx, evs); err != nil {
		t.Fatal(err)
	}
	out, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSaveAllRejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	withID := func(id int) events.Event {
		e := keamApplication()
		e.ID = id
		return e
	}

	tests := []struct {
		name string
		evs  []events.Event
	}{
		{"Zero ids", []events.Event{withID(0), withID(0)}},
		{"Negative id", []events.Event{withID(-1)}},
		{"Repeated id", []events.Event{withID(5), withID(5)}},
	}

	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			stored, err := store.Add(ctx, keamApplication())
			if err != nil {
				t.Fatal(err)
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					if err := store.SaveAll(ctx, tt.evs); !errors.Is(err, events.ErrInvalidEvent) {
						t.Fatalf("Expected ErrInvalidEvent, got %v", err)
					}
					evs, report, err := store.LoadAllWithReport(ctx)
					if err != nil {
						t.Fatal(err)
					}
					if len(evs) != 1 || evs[0].ID != stored.ID || report.Dropped != 0 {
						t.Errorf("Rejected save must leave the medium untouched, got %+v (dropped %d)", evs, report.Dropped)
					}
				})
			}
		})
	}
}

func TestPurgeClosed(t *testing.T) {
	ctx := context.Background()
	for name, open := range media(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			old := keamApplication()
			old.StartDate = events.NewDate(2020, 1, 1)
			old.EndDate = events.NewDate(2020, 1, 2)
			if _, err := store.Add(ctx, old); err != nil {
				t.Fatal(err)
			}
			if _, err := store.Add(ctx, keamApplication()); err != nil {
				t.Fatal(err)
			}

			removed, err := store.PurgeClosed(ctx, events.NewDate(2025, 1, 1))
			if err != nil {
				t.Fatalf("PurgeClosed() failed: %v", err)
			}
			if removed != 1 {
				t.Errorf("Expected 1 removed, got %d", removed)
			}
			evs, _ := store.LoadAll(ctx)
			if len(evs) != 1 || evs[0].ID != 2 {
				t.Errorf("Expected only event 2 to remain, got %+v", evs)
			}
		})
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := NewCSVFile(filepath.Join(dir, "events.csv"), false, zap.NewNop())
	store := New(src, zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, err := store.Add(ctx, keamApplication()); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Delete(ctx, 3); err != nil {
		t.Fatal(err)
	}

	dst, err := OpenSQLite(filepath.Join(dir, "board.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	snap, err := Transfer(ctx, src, dst, false)
	if err != nil {
		t.Fatalf("Transfer() failed: %v", err)
	}
	if len(snap.Events) != 2 || snap.LastID != 3 {
		t.Errorf("Expected 2 events and high-water mark 3, got %d / %d", len(snap.Events), snap.LastID)
	}

	// The retired id stays retired on the new medium
	added, err := New(dst, zap.NewNop()).Add(ctx, keamApplication())
	if err != nil {
		t.Fatal(err)
	}
	if added.ID != 4 {
		t.Errorf("Expected id 4 on the target, got %d", added.ID)
	}

	if _, err := Transfer(ctx, src, dst, false); !errors.Is(err, ErrTargetNotEmpty) {
		t.Errorf("Expected ErrTargetNotEmpty, got %v", err)
	}
	if _, err := Transfer(ctx, src, dst, true); err != nil {
		t.Errorf("Overwrite should succeed, got %v", err)
	}

	missing := NewCSVFile(filepath.Join(dir, "nope.csv"), false, zap.NewNop())
	if _, err := Transfer(ctx, missing, dst, true); err == nil {
		t.Error("Missing source should fail")
	}
}

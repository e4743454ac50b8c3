package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"custodycore/pkg/domain"
)

func TestTransactionCommitAndRollback(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var animal AnimalRecord
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		animal, err = tx.CreateAnimal(AnimalRecord{Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody})
		return err
	}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if animal.ID == "" || animal.Version != 1 {
		t.Fatalf("unexpected created record: %+v", animal)
	}
	if _, ok := store.GetAnimal(animal.ID); !ok {
		t.Fatal("committed animal not visible")
	}

	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateAnimal(AnimalRecord{Chip: "C2", Species: "mule"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got := len(store.ListAnimals()); got != 1 {
		t.Fatalf("rolled-back write leaked: %d animals", got)
	}
}

func TestUpdatePreservesIdentityAndBumpsVersion(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var animal AnimalRecord
	_, _ = store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		animal, err = tx.CreateAnimal(AnimalRecord{Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody})
		return err
	})

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateAnimal(animal.ID, func(a *AnimalRecord) error {
			a.ID = "tampered"
			a.CoatColor = "bay"
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, ok := store.GetAnimal(animal.ID)
	if !ok {
		t.Fatal("animal lost after update")
	}
	if got.ID != animal.ID {
		t.Fatalf("mutator overwrote identity: %s", got.ID)
	}
	if got.Version != 2 || got.CoatColor != "bay" {
		t.Fatalf("unexpected record after update: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("UpdatedAt not advanced: %+v", got.Base)
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateAnimal("missing", func(*AnimalRecord) error { return nil })
		return err
	})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListReturnsClones(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	photo := "animals/x/photo.jpg"
	_, _ = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateAnimal(AnimalRecord{
			Chip: "C1", Species: "horse",
			Status: domain.AnimalStatusInCustody, PhotoReference: &photo,
		})
		return err
	})

	animals := store.ListAnimals()
	*animals[0].PhotoReference = "mutated"
	animals[0].Chip = "mutated"

	fresh := store.ListAnimals()
	if *fresh[0].PhotoReference != photo || fresh[0].Chip != "C1" {
		t.Fatalf("caller mutation reached store state: %+v", fresh[0])
	}
}

func TestFindExitByKey(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, _ = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateExitRecord(ExitRecord{
			AnimalID: "a1", IdempotencyKey: "k1",
			ExitDate: "2026-08-01", Destination: domain.DestinationDeath,
		})
		return err
	})

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindExitByKey("k1"); !ok {
			t.Error("expected hit for k1")
		}
		if _, ok := tx.FindExitByKey("other"); ok {
			t.Error("unexpected hit for unknown key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestMigrateSnapshotNormalizes(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	wid := "w-finalized"

	snapshot := Snapshot{
		Animals: map[string]AnimalRecord{
			"a1": {Base: domain.Base{ID: "a1"}, Chip: "C1", Species: "horse"}, // empty status
		},
		Worklists: map[string]WorklistEntry{
			// Entry already converted to an exit record must be pruned.
			wid: {Base: domain.Base{ID: wid, CreatedAt: now}, Track: domain.TrackAdoption, AnimalID: "a1", Status: domain.StatusAvailable},
			// Duplicate pair: the earliest entry survives.
			"w-old": {Base: domain.Base{ID: "w-old", CreatedAt: now}, Track: domain.TrackRestitution, AnimalID: "a1", Status: domain.StatusAvailable},
			"w-new": {Base: domain.Base{ID: "w-new", CreatedAt: now.Add(time.Hour)}, Track: domain.TrackRestitution, AnimalID: "a1", Status: domain.StatusAvailable},
			// Status outside the track's allow-list is dropped.
			"w-bad": {Base: domain.Base{ID: "w-bad", CreatedAt: now}, Track: domain.TrackAdoption, AnimalID: "a2", Status: domain.StatusApprehensionYard},
		},
		Exits: map[string]ExitRecord{
			"e1": {Base: domain.Base{ID: "e1"}, AnimalID: "a1", WorklistID: &wid, ExitDate: "2026-08-01", Destination: domain.DestinationAdoption},
		},
	}

	store := NewStore(nil)
	store.ImportState(snapshot)

	entries := store.ListWorklistEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(entries))
	}
	if entries[0].ID != "w-old" {
		t.Fatalf("expected earliest duplicate to survive, got %s", entries[0].ID)
	}
	animal, ok := store.GetAnimal("a1")
	if !ok || animal.Status != domain.AnimalStatusInCustody {
		t.Fatalf("expected defaulted status, got %+v", animal)
	}
}

func TestMigrateSnapshotNilMaps(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{})
	if got := len(store.ListAnimals()); got != 0 {
		t.Fatalf("expected empty store, got %d animals", got)
	}
	// Store stays usable after importing a zero snapshot.
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateAnimal(AnimalRecord{Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody})
		return err
	}); err != nil {
		t.Fatalf("write after import failed: %v", err)
	}
}

func TestExportStateIsDetached(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var animal AnimalRecord
	_, _ = store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		animal, err = tx.CreateAnimal(AnimalRecord{Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody})
		return err
	})

	snap := store.ExportState()
	rec := snap.Animals[animal.ID]
	rec.Chip = "mutated"
	snap.Animals[animal.ID] = rec

	got, _ := store.GetAnimal(animal.ID)
	if got.Chip != "C1" {
		t.Fatalf("export mutation reached store: %+v", got)
	}
}

func TestSetNowFuncControlsTimestamps(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })

	var animal AnimalRecord
	_, _ = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		animal, err = tx.CreateAnimal(AnimalRecord{Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody})
		return err
	})
	if !animal.CreatedAt.Equal(fixed) || !animal.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected fixed timestamps, got %+v", animal.Base)
	}
}

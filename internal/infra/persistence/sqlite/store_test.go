package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"custodycore/pkg/domain"
)

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custody.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var animal domain.AnimalRecord
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		animal, err = tx.CreateAnimal(domain.AnimalRecord{
			Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody, IntakeDate: "2026-08-01",
		})
		if err != nil {
			return err
		}
		_, err = tx.CreateWorklistEntry(domain.WorklistEntry{
			Track: domain.TrackAdoption, AnimalID: animal.ID, Status: domain.StatusAvailable,
		})
		return err
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.DB().Close() }()

	got, ok := reopened.GetAnimal(animal.ID)
	if !ok {
		t.Fatal("animal lost across reopen")
	}
	if got.Chip != "C1" || got.IntakeDate != "2026-08-01" {
		t.Fatalf("unexpected reloaded record: %+v", got)
	}
	if entries := reopened.ListWorklistEntries(); len(entries) != 1 {
		t.Fatalf("expected 1 worklist entry after reload, got %d", len(entries))
	}
}

func TestReopenPrunesFinalizedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custody.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// Simulate the half-finished state a legacy two-step finalize could leave
	// behind: the exit exists but its worklist entry was never removed.
	var entryID string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		animal, err := tx.CreateAnimal(domain.AnimalRecord{
			Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody,
		})
		if err != nil {
			return err
		}
		entry, err := tx.CreateWorklistEntry(domain.WorklistEntry{
			Track: domain.TrackRestitution, AnimalID: animal.ID, Status: domain.StatusAvailable,
		})
		if err != nil {
			return err
		}
		entryID = entry.ID
		_, err = tx.CreateExitRecord(domain.ExitRecord{
			AnimalID: animal.ID, WorklistID: &entryID,
			ExitDate: "2026-08-10", Destination: domain.DestinationRestitution,
		})
		return err
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.DB().Close() }()

	if entries := reopened.ListWorklistEntries(); len(entries) != 0 {
		t.Fatalf("finalized entry survived reload: %+v", entries)
	}
	if exits := reopened.ListExitRecords(); len(exits) != 1 {
		t.Fatalf("expected exit preserved, got %d", len(exits))
	}
}

func TestDefaultPath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("open with default path failed: %v", err)
	}
	defer func() { _ = store.DB().Close() }()
	if store.Path() != "custodycore.db" {
		t.Fatalf("unexpected default path %s", store.Path())
	}
}

package core

import (
	"context"
	"errors"
	"testing"

	"custodycore/internal/infra/persistence/memory"
	"custodycore/pkg/domain"
)

func TestTrackUniquenessRuleBlocksCommit(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine(0))
	ctx := context.Background()

	var animal AnimalRecord
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		animal, err = tx.CreateAnimal(AnimalRecord{Chip: "C1", Species: "horse", Status: domain.AnimalStatusInCustody})
		if err != nil {
			return err
		}
		_, err = tx.CreateWorklistEntry(WorklistEntry{Track: TrackAdoption, AnimalID: animal.ID, Status: domain.StatusAvailable})
		return err
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// A second entry for the same animal on the same track fails at commit,
	// even when written directly through the store.
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateWorklistEntry(WorklistEntry{Track: TrackAdoption, AnimalID: animal.ID, Status: domain.StatusSelected})
		return err
	})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !ruleErr.Result.HasBlocking() {
		t.Fatal("expected a blocking violation")
	}

	// The blocked transaction left nothing behind.
	if got := len(store.ListWorklistEntries()); got != 1 {
		t.Fatalf("expected 1 entry after blocked commit, got %d", got)
	}

	// A different track commits cleanly.
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateWorklistEntry(WorklistEntry{Track: TrackRestitution, AnimalID: animal.ID, Status: domain.StatusAvailable})
		return err
	}); err != nil {
		t.Fatalf("cross-track entry failed: %v", err)
	}
}

func TestYardOccupancyRuleAdvisoryOnly(t *testing.T) {
	// Capacity 2: the third distinct animal pushes occupancy past critical,
	// yet commits must still succeed.
	store := memory.NewStore(NewDefaultRulesEngine(2))
	ctx := context.Background()

	var lastResult Result
	for i := 0; i < 3; i++ {
		res, err := store.RunInTransaction(ctx, func(tx Transaction) error {
			animal, err := tx.CreateAnimal(AnimalRecord{Chip: "C", Species: "horse", Status: domain.AnimalStatusInCustody})
			if err != nil {
				return err
			}
			_, err = tx.CreateWorklistEntry(WorklistEntry{Track: TrackAdoption, AnimalID: animal.ID, Status: domain.StatusAvailable})
			return err
		})
		if err != nil {
			t.Fatalf("intake %d blocked: %v", i, err)
		}
		lastResult = res
	}

	found := false
	for _, v := range lastResult.Violations {
		if v.Rule == "yard_occupancy" {
			found = true
			if v.Severity != SeverityWarn {
				t.Fatalf("expected warn severity past critical, got %s", v.Severity)
			}
		}
	}
	if !found {
		t.Fatal("expected a yard_occupancy violation at 150% occupancy")
	}
}

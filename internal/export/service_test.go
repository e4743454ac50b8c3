package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"custodycore/internal/core"
	"custodycore/internal/infra/persistence/memory"
	"custodycore/pkg/domain"
)

func seedExit(t *testing.T, svc *core.Service, chip, exitDate string) {
	t.Helper()
	ctx := context.Background()
	animal, err := svc.CreateAnimal(ctx, domain.AnimalRecord{
		Chip: chip, Species: "horse", CoatColor: "bay", IntakeDate: "2026-08-01",
	})
	if err != nil {
		t.Fatalf("CreateAnimal failed: %v", err)
	}
	_, err = svc.FinalizeAnimal(ctx, animal.ID, core.ExitForm{
		ExitDate:         exitDate,
		Destination:      domain.DestinationRestitution,
		ReceiverName:     "Maria Souza",
		ReceiverDocument: "123.456.789-00",
	})
	if err != nil {
		t.Fatalf("FinalizeAnimal failed: %v", err)
	}
}

func TestExportExitsXLSX(t *testing.T) {
	store := memory.NewStore(core.NewDefaultRulesEngine(0))
	svc := core.NewService(store)
	seedExit(t, svc, "X1", "2026-08-10")
	seedExit(t, svc, "X2", "2026-07-02")

	exporter := NewService(svc, nil)
	data, err := exporter.ExportExitsXLSX(context.Background(), "", "")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Exits")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Exit Date" || rows[0][1] != "Chip" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	// Ledger export is newest exit first.
	if rows[1][1] != "X1" || rows[2][1] != "X2" {
		t.Fatalf("unexpected row order: %v / %v", rows[1], rows[2])
	}
}

func TestExportExitsXLSXDateWindow(t *testing.T) {
	store := memory.NewStore(core.NewDefaultRulesEngine(0))
	svc := core.NewService(store)
	seedExit(t, svc, "X1", "2026-08-10")
	seedExit(t, svc, "X2", "2026-07-02")

	exporter := NewService(svc, nil)
	data, err := exporter.ExportExitsXLSX(context.Background(), "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Exits")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row in window, got %d", len(rows))
	}
	if rows[1][1] != "X1" {
		t.Fatalf("wrong row exported: %v", rows[1])
	}
}

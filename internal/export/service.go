package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"custodycore/internal/core"
)

// Service is a tiny façade over the lifecycle service that produces XLSX
// bytes for ledger exports.
type Service struct {
	svc    *core.Service
	logger *zap.Logger
}

func NewService(svc *core.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{svc: svc, logger: logger}
}

// ExportExitsXLSX returns an XLSX workbook (as bytes) of the exit ledger for
// the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> the full ledger.
func (s *Service) ExportExitsXLSX(ctx context.Context, from, to string) ([]byte, error) {
	start := time.Now()

	if from != "" && to == "" {
		to = time.Now().UTC().Format("2006-01-02")
	}

	exits := s.svc.ListExits(ctx)

	f := excelize.NewFile()
	const sheet = "Exits"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Exit Date",
		"Chip",
		"Species",
		"Gender",
		"Coat Color",
		"Destination",
		"Receiver",
		"Receiver Document",
		"SEI Process",
		"Adoption Term",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	count := 0
	for _, exit := range exits {
		if from != "" && exit.ExitDate < from {
			continue
		}
		if to != "" && exit.ExitDate > to {
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, exit.ExitDate)
		write(2, exit.Chip)
		write(3, exit.Species)
		write(4, string(exit.Gender))
		write(5, exit.CoatColor)
		write(6, string(exit.Destination))
		write(7, exit.ReceiverName)
		write(8, exit.ReceiverDocument)
		write(9, exit.SEIProcessNumber)
		write(10, exit.AdoptionTermNumber)

		row++
		count++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "C", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 22)
	_ = f.SetColWidth(sheet, "G", "G", 28)
	_ = f.SetColWidth(sheet, "H", "J", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		zap.Int("rows", count),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}

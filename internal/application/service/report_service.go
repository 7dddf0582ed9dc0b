package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
)

// ReportService exports the document request register as an Excel workbook
type ReportService interface {
	ExportRegister(ctx context.Context, from, to time.Time) ([]byte, error)
}

type reportServiceImpl struct {
	requestRepo  port.RequestRepository
	barangayName string
	logger       Logger
}

// NewReportService creates a new report service
func NewReportService(requestRepo port.RequestRepository, barangayName string, logger Logger) ReportService {
	return &reportServiceImpl{
		requestRepo:  requestRepo,
		barangayName: barangayName,
		logger:       logger,
	}
}

const registerSheet = "Requests"

var registerColumns = []string{
	"Tracking Number", "Resident", "Document Type", "Amount",
	"Payment Method", "Status", "Submitted", "Reviewed By", "Verified By",
}

// ExportRegister builds the register workbook for requests submitted in
// [from, to)
func (s *reportServiceImpl) ExportRegister(ctx context.Context, from, to time.Time) ([]byte, error) {
	requests, err := s.requestRepo.List(ctx, port.RequestFilter{
		From:  &from,
		To:    &to,
		Limit: 10000,
	})
	if err != nil {
		return nil, fmt.Errorf("load requests for register: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(registerSheet)
	if err != nil {
		return nil, fmt.Errorf("create register sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	title := fmt.Sprintf("%s Document Request Register (%s to %s)",
		s.barangayName, from.Format("2006-01-02"), to.Format("2006-01-02"))
	s.setCell(f, "A1", title)

	for i, col := range registerColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		s.setCell(f, cell, col)
	}

	for rowIdx, req := range requests {
		row := rowIdx + 3
		values := []interface{}{
			req.TrackingNumber,
			req.ResidentName,
			req.DocumentType,
			req.Amount.StringFixed(2),
			req.PaymentMethod,
			req.Status,
			req.SubmittedAt.Format("2006-01-02 15:04"),
			req.ReviewedBy,
			req.PaymentVerifiedBy,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			if err := f.SetCellValue(registerSheet, cell, value); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetColWidth(registerSheet, "A", "I", 22); err != nil {
		return nil, fmt.Errorf("set column widths: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Register exported",
		"rows", len(requests),
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"))

	return buf.Bytes(), nil
}

func (s *reportServiceImpl) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(registerSheet, cell, value); err != nil {
		s.logger.Error("Failed to set cell", "cell", cell, "error", err.Error())
	}
}

package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"xparking/internal/database"
	"xparking/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "02.01.2006 15:04"

// Exporter writes booking and revenue reports as Excel files.
type Exporter struct {
	db       *database.DB
	path     string
	location *time.Location
	logger   *zerolog.Logger
}

func NewExporter(db *database.DB, path string, location *time.Location, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		db:       db,
		path:     path,
		location: location,
		logger:   logger,
	}
}

// ExportBookings writes all bookings overlapping the period to an xlsx file
// and returns its path.
func (e *Exporter) ExportBookings(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	bookings, err := e.db.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "User ID", "License Plate", "Slot", "Start", "End",
		"Amount", "Status", "Payment Ref", "Created",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), b.UserID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), b.LicensePlate)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), b.SlotID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), b.StartTime.In(e.location).Format(exportTimeLayout))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), b.EndTime.In(e.location).Format(exportTimeLayout))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), b.Amount)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), string(b.Status))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), b.PaymentRef)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), b.CreatedAt.In(e.location).Format(exportTimeLayout))
	}

	_ = f.SetColWidth(sheetName, "A", "B", 10)
	_ = f.SetColWidth(sheetName, "C", "C", 16)
	_ = f.SetColWidth(sheetName, "D", "D", 8)
	_ = f.SetColWidth(sheetName, "E", "F", 18)
	_ = f.SetColWidth(sheetName, "G", "G", 12)
	_ = f.SetColWidth(sheetName, "H", "J", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(bookings)).Msg("Bookings report created")
	return filePath, nil
}

// ExportRevenue writes all completed payments in the period with a total row.
func (e *Exporter) ExportRevenue(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	payments, err := e.db.GetCompletedPaymentsByDateRange(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("error getting payments: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Revenue"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Payment Ref", "Source", "Booking ID", "Vehicle ID", "Amount", "Bank Txn", "Completed"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	var total int64
	row := 2
	for _, p := range payments {
		source := "exit"
		if models.IsBookingRef(p.PaymentRef) {
			source = "booking"
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), p.PaymentRef)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), source)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), p.BookingID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), p.VehicleID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), p.Amount)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), p.BankTxnID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), p.CompletedAt.In(e.location).Format(exportTimeLayout))
		total += p.Amount
		row++
	}

	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), total)
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), totalStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 22)
	_ = f.SetColWidth(sheetName, "B", "D", 12)
	_ = f.SetColWidth(sheetName, "E", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "G", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("revenue_%s_to_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int64("total", total).Msg("Revenue report created")
	return filePath, nil
}

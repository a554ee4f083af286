package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"fieldforce/api/internal/model"
)

// ExportService renders attendance data as Excel files
type ExportService struct {
	db *gorm.DB
}

// NewExportService creates a new export service
func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db}
}

// AttendanceSheet builds an xlsx workbook with one row per check-in on the
// given business day, earliest first.
func (s *ExportService) AttendanceSheet(ctx context.Context, date string) (*bytes.Buffer, error) {
	var records []model.AttendanceRecord
	if err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("check_in_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Attendance " + date
	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"#", "Salesman ID", "Email", "Check-In Time", "Latitude", "Longitude", "Map Link", "Device"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, h)
	}

	for i, r := range records {
		row := i + 2
		email := r.Email
		if email == "" {
			email = "Unknown"
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.SalesmanID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), email)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.CheckInAt.Format("15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.Lat)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Lon)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.MapURL())
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Device)
	}

	f.SetColWidth(sheetName, "C", "C", 30)
	f.SetColWidth(sheetName, "D", "G", 20)
	f.SetColWidth(sheetName, "H", "H", 40)

	return f.WriteToBuffer()
}

package dashboard

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bookings"

var exportColumns = []string{"Booking", "Hotel", "Room", "Unit", "Check-in", "Check-out", "Nights", "Total", "Status"}

// Export writes the bookings list as an XLSX workbook.
func (d *Dashboard) Export(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, col); err != nil {
			return err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		end, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(exportSheet, "A1", end, style)
	}

	for r, b := range d.Bookings() {
		row := []interface{}{
			b.ID,
			b.HotelName(),
			b.RoomTitle(),
			b.RoomNumber,
			b.DateStart.Format("2006-01-02"),
			b.DateEnd.Format("2006-01-02"),
			b.Nights(),
			b.TotalPrice,
			string(b.Status),
		}
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, start, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	return f.Write(w)
}

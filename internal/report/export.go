package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet      = "Work orders"
	XLSXContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportDateLayout = "20060102"
	exportTimeLayout = "2006-01-02 15:04"
)

// Checklist answers, photos and signatures are not exported.
var exportHeaders = []string{
	"ID", "Created", "Field work finished", "Closed", "Client", "Address",
	"Vehicle model", "Plate", "Category", "Service type", "Tracker types", "Cameras",
	"Tracker serial", "Lock installed", "Technician", "Status", "Notes",
}

func ExportFilename(from, to time.Time) string {
	return fmt.Sprintf("work_orders_%s_%s.xlsx", from.Format(exportDateLayout), to.Format(exportDateLayout))
}

func cellTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportTimeLayout)
}

func exportRow(wo *workorder.WorkOrder) []interface{} {
	created := wo.CreatedAt
	return []interface{}{
		wo.ID,
		cellTime(&created),
		cellTime(wo.FinalizedAt),
		cellTime(wo.ClosedAt),
		wo.ClientName,
		wo.ClientAddress,
		wo.VehicleModel,
		wo.VehiclePlate,
		wo.VehicleCategory,
		wo.ServiceType,
		strings.Join(wo.TrackerTypes, ", "),
		wo.CameraCount,
		wo.TrackerSerialID,
		yesNo(wo.LockInstalled),
		wo.TechnicianName,
		string(wo.Status),
		wo.Notes,
	}
}

// ExportWorkbook writes one row per order under a bold header.
func ExportWorkbook(orders []*workorder.WorkOrder) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range exportHeaders {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		cell := colName + "1"
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for r, wo := range orders {
		for c, v := range exportRow(wo) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	widths := []float64{38, 16, 18, 16, 24, 30, 16, 12, 12, 14, 20, 8, 16, 12, 20, 16, 40}
	for i, w := range widths {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(exportSheet, colName, colName, w); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

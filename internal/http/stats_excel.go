package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"salesops-data/internal/service"
)

// MonthlyStatsHeader export column order
var MonthlyStatsHeader = []string{
	"担当者",
	"電話",
	"送信",
	"合計",
	"返信",
	"返信率",
	"リタゲ獲得",
	"商談中",
	"契約",
}

// GenerateMonthlyStatsExcel one sheet per month with a totals row.
func GenerateMonthlyStatsExcel(year, month int, stats []service.MonthlyStat) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("%04d-%02d", year, month)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range MonthlyStatsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(MonthlyStatsHeader))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", lastCol, 11); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var total service.ContactCounters
	row := 2
	for _, st := range stats {
		if err := writeStatsRow(f, sheetName, row, st.Manager, st.ContactCounters); err != nil {
			return nil, err
		}
		total.PhoneCount += st.PhoneCount
		total.SendCount += st.SendCount
		total.TotalCount += st.TotalCount
		total.ReplyCount += st.ReplyCount
		total.RetargetingCount += st.RetargetingCount
		total.NegotiationCount += st.NegotiationCount
		total.ContractCount += st.ContractCount
		row++
	}
	total.ReplyRate = service.FormatRate(total.ReplyCount, total.TotalCount)
	if err := writeStatsRow(f, sheetName, row, "合計", total); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeStatsRow(f *excelize.File, sheet string, row int, label string, c service.ContactCounters) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	values := []interface{}{
		label,
		c.PhoneCount,
		c.SendCount,
		c.TotalCount,
		c.ReplyCount,
		c.ReplyRate,
		c.RetargetingCount,
		c.NegotiationCount,
		c.ContractCount,
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

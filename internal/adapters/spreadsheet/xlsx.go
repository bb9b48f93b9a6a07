package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"jacow_reports/internal/reporting"
)

const sheetName = "Abstracts"

// WriteXLSX writes the sheet into a single-sheet workbook.
func WriteXLSX(w io.Writer, sheet reporting.Sheet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	dateFmt := "yyyy-mm-dd hh:mm:ss"
	dates, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return fmt.Errorf("date style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	header := make([]any, len(sheet.Columns))
	for i, c := range sheet.Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range sheet.Rows {
		vals := make([]any, len(sheet.Columns))
		for j, col := range sheet.Columns {
			vals[j] = xlsxCell(row[col], dates)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	return f.Write(w)
}

func xlsxCell(v any, dateStyle int) any {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return excelize.Cell{StyleID: dateStyle, Value: x}
	case []string:
		return strings.Join(x, "; ")
	case bool:
		return formatCell(x)
	}
	return v
}

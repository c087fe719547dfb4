package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type xlsxDecoder struct{}

// Decode reads raw cell values so numbers keep full precision and dates stay serial numbers.
func (xlsxDecoder) Decode(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Workbook{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Workbook{}, ErrUnreadableWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Workbook{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return Workbook{SheetNames: sheets, Rows: rows}, nil
}

// EncodeXLSX writes the dataset as a single-sheet workbook with the header in row 1.
func EncodeXLSX(ds Dataset, sheetName string, w io.Writer) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	f := excelize.NewFile()
	defer f.Close()

	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}

	header := make([]interface{}, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range ds.Records {
		row := make([]interface{}, len(ds.Columns))
		for j, c := range ds.Columns {
			row[j] = rec[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

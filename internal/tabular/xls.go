package tabular

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

type xlsDecoder struct{}

func (xlsDecoder) Decode(r io.Reader) (wb Workbook, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Workbook{}, fmt.Errorf("read xls: %w", err)
	}
	// The BIFF parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			wb, err = Workbook{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, rec)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Workbook{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	if book.NumSheets() == 0 {
		return Workbook{}, ErrUnreadableWorkbook
	}
	names := make([]string, 0, book.NumSheets())
	for i := 0; i < book.NumSheets(); i++ {
		if s := book.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return Workbook{}, ErrUnreadableWorkbook
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return Workbook{SheetNames: names, Rows: rows}, nil
}

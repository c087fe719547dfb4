package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies a spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

const (
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEXLS  = "application/vnd.ms-excel"
	MIMECSV  = "text/csv"
)

// Workbook is the decoded first sheet plus the names of every sheet.
type Workbook struct {
	SheetNames []string
	Rows       [][]string
}

// Decoder reads one spreadsheet format.
type Decoder interface {
	Decode(r io.Reader) (Workbook, error)
}

var decoders = map[Format]Decoder{
	FormatXLSX: xlsxDecoder{},
	FormatXLS:  xlsDecoder{},
	FormatCSV:  csvDecoder{},
}

// Decode reads r with the decoder registered for format.
func Decode(format Format, r io.Reader) (Workbook, error) {
	dec, ok := decoders[format]
	if !ok {
		return Workbook{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return dec.Decode(r)
}

// DecodeDataset decodes r and normalizes its first sheet.
func DecodeDataset(format Format, r io.Reader) (Workbook, Dataset, error) {
	wb, err := Decode(format, r)
	if err != nil {
		return Workbook{}, Dataset{}, err
	}
	ds, err := Normalize(wb.Rows)
	if err != nil {
		return wb, Dataset{}, err
	}
	return wb, ds, nil
}

// DetectFormat resolves the spreadsheet format from the file extension, the
// declared content type, and finally the sniffed content. A known extension
// whose content sniffs as something incompatible is rejected.
func DetectFormat(declaredMIME, fileName string, head []byte) (Format, error) {
	format, ok := formatFromExt(fileName)
	if !ok {
		format, ok = formatFromMIME(declaredMIME)
	}
	var sniffed *mimetype.MIME
	if len(head) > 0 {
		sniffed = mimetype.Detect(head)
	}
	if !ok && sniffed != nil {
		format, ok = formatFromSniff(sniffed)
	}
	if !ok {
		return "", ErrUnsupportedFormat
	}
	if sniffed != nil && !compatible(format, sniffed) {
		return "", fmt.Errorf("%w: content looks like %s", ErrUnsupportedFormat, sniffed.String())
	}
	return format, nil
}

func formatFromExt(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, true
	case ".xls":
		return FormatXLS, true
	case ".csv":
		return FormatCSV, true
	}
	return "", false
}

func formatFromMIME(raw string) (Format, bool) {
	mt := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case MIMEXLSX:
		return FormatXLSX, true
	case MIMEXLS:
		return FormatXLS, true
	case MIMECSV:
		return FormatCSV, true
	}
	return "", false
}

func formatFromSniff(m *mimetype.MIME) (Format, bool) {
	for ; m != nil; m = m.Parent() {
		switch {
		case m.Is(MIMEXLSX):
			return FormatXLSX, true
		case m.Is(MIMEXLS):
			return FormatXLS, true
		case m.Is(MIMECSV):
			return FormatCSV, true
		}
	}
	return "", false
}

func compatible(format Format, m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		switch format {
		case FormatXLSX:
			if m.Is(MIMEXLSX) || m.Is("application/zip") {
				return true
			}
		case FormatXLS:
			if m.Is(MIMEXLS) || m.Is("application/x-ole-storage") {
				return true
			}
		case FormatCSV:
			if strings.HasPrefix(m.String(), "text/") {
				return true
			}
		}
	}
	return false
}

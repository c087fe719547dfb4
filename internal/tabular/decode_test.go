package tabular

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCSVDecodeSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "comma", body: "city,sales\nOslo,10\nLima,20\n"},
		{name: "semicolon", body: "city;sales\nOslo;10\nLima;20\n"},
		{name: "tab", body: "city\tsales\nOslo\t10\nLima\t20\n"},
		{name: "bom", body: "\ufeffcity,sales\nOslo,10\nLima,20\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, ds, err := DecodeDataset(FormatCSV, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(ds.Columns, []string{"city", "sales"}) {
				t.Fatalf("unexpected columns %v", ds.Columns)
			}
			if ds.Records[1]["sales"] != 20.0 {
				t.Fatalf("unexpected record %#v", ds.Records[1])
			}
		})
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	src := Dataset{
		Columns: []string{"Region", "Units"},
		Records: []Record{
			{"Region": "North", "Units": 12.0},
			{"Region": "South", "Units": 7.5},
		},
	}
	var buf bytes.Buffer
	if err := EncodeXLSX(src, "Sheet1", &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	wb, ds, err := DecodeDataset(FormatXLSX, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(wb.SheetNames, []string{"Sheet1"}) {
		t.Fatalf("unexpected sheets %v", wb.SheetNames)
	}
	if !reflect.DeepEqual(ds.Columns, src.Columns) {
		t.Fatalf("unexpected columns %v", ds.Columns)
	}
	if ds.Records[1]["Units"] != 7.5 || ds.Records[0]["Region"] != "North" {
		t.Fatalf("unexpected records %#v", ds.Records)
	}
}

func TestXLSXUnreadable(t *testing.T) {
	if _, err := Decode(FormatXLSX, strings.NewReader("not a zip")); !errors.Is(err, ErrUnreadableWorkbook) {
		t.Fatalf("expected ErrUnreadableWorkbook, got %v", err)
	}
}

func TestXLSUnreadable(t *testing.T) {
	if _, err := Decode(FormatXLS, strings.NewReader("definitely not biff")); !errors.Is(err, ErrUnreadableWorkbook) {
		t.Fatalf("expected ErrUnreadableWorkbook, got %v", err)
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	if _, err := Decode(Format("ods"), strings.NewReader("")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	csvHead := []byte("a,b\n1,2\n")
	pngHead := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name     string
		mime     string
		fileName string
		head     []byte
		want     Format
		wantErr  bool
	}{
		{name: "extension wins", mime: "application/octet-stream", fileName: "q1.CSV", head: csvHead, want: FormatCSV},
		{name: "declared mime", mime: "text/csv; charset=utf-8", fileName: "export", head: csvHead, want: FormatCSV},
		{name: "xls by mime", mime: MIMEXLS, fileName: "legacy", want: FormatXLS},
		{name: "image disguised as xlsx", fileName: "photo.xlsx", head: pngHead, wantErr: true},
		{name: "unknown", mime: "application/pdf", fileName: "doc.pdf", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.mime, tt.fileName, tt.head)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("DetectFormat = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

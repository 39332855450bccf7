package export

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

// Format selects an export renderer.
type Format string

const (
	CSV  Format = "csv"
	XLS  Format = "xls"
	XLSX Format = "xlsx"
)

// Formats lists the supported formats.
var Formats = []Format{CSV, XLS, XLSX}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Errorf("export: unknown format %q (want csv, xls or xlsx)", s)
}

// FileName is the download name for f.
func (f Format) FileName() string { return BaseName + "." + string(f) }

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case XLS:
		return "application/vnd.ms-excel; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Write renders res in format f to w.
func Write(w io.Writer, f Format, headers []string, res model.AggregateResult) error {
	var text string
	var err error
	switch f {
	case CSV:
		text, err = DelimitedText(headers, res)
	case XLS:
		text, err = TabularMarkup(headers, res)
	case XLSX:
		return Spreadsheet(w, headers, res)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		return eris.Wrap(err, "export: write")
	}
	return nil
}

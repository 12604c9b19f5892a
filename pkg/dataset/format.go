package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
	}
}

// Ext returns the file extension, with leading dot, used for f.
func (f Format) Ext() string { return "." + string(f) }

// FormatFromExt maps a path's extension to a format.
func FormatFromExt(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, true
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	default:
		return "", false
	}
}

// DetectFormat picks the format from the extension and falls back to
// sniffing the content.
func DetectFormat(path string) (Format, error) {
	if f, ok := FormatFromExt(path); ok {
		return f, nil
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrInputNotFound, "%s", path)
		}
		return "", errors.Wrapf(err, "detect %s", path)
	}
	return formatFromMIME(mt)
}

func formatFromMIME(mt *mimetype.MIME) (Format, error) {
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"), m.Is("application/zip"):
			return FormatXLSX, nil
		case m.Is("text/csv"), m.Is("text/plain"):
			return FormatCSV, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%s", mt.String())
}

type ReadOptions struct {
	Format Format
	Sheet  string
	Strict bool
}

// ReadFile loads a CSV or XLSX dataset. A missing file yields ErrInputNotFound
// before anything else is attempted.
func ReadFile(path string, opts ReadOptions) (*Table, Format, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.Wrapf(ErrInputNotFound, "%s", path)
		}
		return nil, "", errors.Wrapf(err, "stat %s", path)
	}
	format := opts.Format
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, "", err
		}
		format = f
	}
	switch format {
	case FormatCSV:
		t, err := ReadCSVFile(path, CSVOptions{Strict: opts.Strict})
		return t, format, err
	case FormatXLSX:
		t, err := ReadXLSXFile(path, opts.Sheet)
		return t, format, err
	default:
		return nil, "", errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
}

type WriteOptions struct {
	Format Format
	CSV    CSVOptions
	XLSX   XLSXOptions
}

// WriteFile serializes t to path atomically in the requested format.
func WriteFile(path string, t *Table, opts WriteOptions) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		switch opts.Format {
		case FormatCSV:
			return WriteCSV(w, t, opts.CSV)
		case FormatXLSX:
			return WriteXLSX(w, t, opts.XLSX)
		default:
			return errors.Wrapf(ErrUnsupportedFormat, "%q", opts.Format)
		}
	})
}

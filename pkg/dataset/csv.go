package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type CSVOptions struct {
	// Strict rejects rows shorter than the header instead of padding them.
	Strict bool
	// BOM writes a UTF-8 byte order mark so spreadsheet tools detect UTF-8.
	BOM bool
}

func ReadCSVFile(path string, opts CSVOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInputNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// ReadCSV loads a whole CSV document. UTF-8 and UTF-16 byte order marks are
// honoured and stripped.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(bufio.NewReader(decoded))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = false

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	t := New(header)

	line := 1
	for {
		line++
		rec, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if len(rec) > len(header) {
			return nil, errors.Wrapf(ErrRaggedRow, "line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		if len(rec) < len(header) && opts.Strict {
			return nil, errors.Wrapf(ErrRaggedRow, "line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		row := make([]Value, len(header))
		for i, cell := range rec {
			row[i] = Parse(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		return nil, err
	}
	return normalizeHeader(h)
}

// normalizeHeader trims and NFC-normalizes column names and rejects empty or
// repeated names.
func normalizeHeader(h []string) ([]string, error) {
	out := make([]string, len(h))
	seen := make(map[string]struct{}, len(h))
	for i, name := range h {
		if !utf8.ValidString(name) {
			return nil, errors.Errorf("invalid header encoding in column %d", i+1)
		}
		name = norm.NFC.String(strings.TrimSpace(name))
		if name == "" {
			return nil, errors.Errorf("empty header name in column %d", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, errors.Wrapf(ErrDuplicateColumn, "%q", name)
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out, nil
}

func WriteCSV(w io.Writer, t *Table, opts CSVOptions) error {
	var (
		out io.Writer = w
		tw  io.WriteCloser
	)
	if opts.BOM {
		tw = transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		out = tw
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	rec := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, v := range row {
			rec[j] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush")
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return errors.Wrap(err, "flush")
		}
	}
	return nil
}

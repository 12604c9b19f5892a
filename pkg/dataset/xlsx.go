package dataset

import (
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet       = "Sheet1"
	defaultTableStyle  = "TableStyleMedium2"
	defaultMaxColWidth = 30
	headerFill         = "#4472C4"
	fontFamily         = "微软雅黑"
)

type XLSXOptions struct {
	Sheet string
	// Table names the table range laid over the data. Empty disables it.
	Table       string
	TableStyle  string
	MaxColWidth float64
	// Plain skips fonts, fills and column widths.
	Plain bool
}

func ReadXLSXFile(path, sheet string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInputNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	t, err := readXLSX(f, sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

func readXLSX(r io.Reader, sheet string) (*Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = wb.Close() }()
	return readWorkbook(wb, sheet)
}

func readWorkbook(f *excelize.File, sheet string) (*Table, error) {
	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, ErrSheetNotFound
		}
		sheet = sheets[0]
	}
	found := false
	for _, s := range sheets {
		if s == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Wrapf(ErrSheetNotFound, "%q", sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "rows of %q", sheet)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	header, err := normalizeHeader(rows[0])
	if err != nil {
		return nil, err
	}
	t := New(header)
	for i, rec := range rows[1:] {
		if len(rec) > len(header) {
			return nil, errors.Wrapf(ErrRaggedRow, "row %d: %d cells, header has %d", i+2, len(rec), len(header))
		}
		row := make([]Value, len(header))
		for j, cell := range rec {
			row[j] = Parse(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteXLSX writes t as a single-sheet workbook. With a table name set, the
// data range becomes a named, filterable table; a header-only sheet gets a
// plain auto-filter instead because a table needs at least one data row.
func WriteXLSX(w io.Writer, t *Table, opts XLSXOptions) error {
	f, err := BuildWorkbook(t, opts)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

// BuildWorkbook renders t into a new workbook without serializing it.
func BuildWorkbook(t *Table, opts XLSXOptions) (*excelize.File, error) {
	sheet := opts.Sheet
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "sheet name %q", sheet)
		}
	}
	if err := WriteSheet(f, sheet, t, opts); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// WriteSheet fills an existing sheet of f with t starting at A1.
func WriteSheet(f *excelize.File, sheet string, t *Table, opts XLSXOptions) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v.Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}
	if len(t.Columns) == 0 {
		return nil
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}
	lastRow := len(t.Rows) + 1

	if !opts.Plain {
		if err := styleSheet(f, sheet, t, lastCol, lastRow, opts.MaxColWidth); err != nil {
			return err
		}
	}

	if opts.Table == "" {
		return nil
	}
	if len(t.Rows) == 0 {
		if err := f.AutoFilter(sheet, "A1:"+lastCol+"1", nil); err != nil {
			return errors.Wrap(err, "auto filter")
		}
		return nil
	}
	style := opts.TableStyle
	if style == "" {
		style = defaultTableStyle
	}
	stripes := true
	if err := f.AddTable(sheet, &excelize.Table{
		Range:          "A1:" + lastCol + strconv.Itoa(lastRow),
		Name:           opts.Table,
		StyleName:      style,
		ShowRowStripes: &stripes,
	}); err != nil {
		return errors.Wrapf(err, "add table %q", opts.Table)
	}
	return nil
}

func styleSheet(f *excelize.File, sheet string, t *Table, lastCol string, lastRow int, maxWidth float64) error {
	headerStyle, err := HeaderStyle(f)
	if err != nil {
		return err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return errors.Wrap(err, "body style")
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return errors.Wrap(err, "header style")
	}
	if lastRow > 1 {
		if err := f.SetCellStyle(sheet, "A2", lastCol+strconv.Itoa(lastRow), bodyStyle); err != nil {
			return errors.Wrap(err, "body style")
		}
	}

	if maxWidth <= 0 {
		maxWidth = defaultMaxColWidth
	}
	for i, width := range columnWidths(t, maxWidth) {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return errors.Wrapf(err, "column width %s", name)
		}
	}
	return nil
}

// HeaderStyle registers the bold white-on-blue header style in f.
func HeaderStyle(f *excelize.File) (int, error) {
	id, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 11, Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return 0, errors.Wrap(err, "header style")
	}
	return id, nil
}

// columnWidths sizes each column to its longest rendered cell plus two,
// capped at maxWidth.
func columnWidths(t *Table, maxWidth float64) []float64 {
	widths := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		longest := utf8.RuneCountInString(c)
		for _, row := range t.Rows {
			if n := utf8.RuneCountInString(row[i].String()); n > longest {
				longest = n
			}
		}
		w := float64(longest + 2)
		if w > maxWidth {
			w = maxWidth
		}
		widths[i] = w
	}
	return widths
}

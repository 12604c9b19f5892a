package dataset

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"", Empty()},
		{"34", Int(34)},
		{"-2", Int(-2)},
		{"3.5", Float(3.5)},
		{"Yes", String("Yes")},
		{"Research & Development", String("Research & Development")},
		{"NaN", String("NaN")},
		{" 7", Int(7)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestValueKey(t *testing.T) {
	assert.Equal(t, "3", Int(3).Key())
	assert.Equal(t, "3", Float(3).Key())
	assert.Equal(t, "3.5", Float(3.5).Key())
	assert.Equal(t, "Male", String("Male").Key())
	assert.Equal(t, "", Empty().Key())
}

func TestTable_IsNumeric(t *testing.T) {
	tbl := New([]string{"a", "b", "c", "d"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1), String("x"), Empty(), Float(1.5)}))
	require.NoError(t, tbl.AppendRow([]Value{Empty(), Int(2), Empty(), Int(2)}))

	assert.True(t, tbl.IsNumeric("a"))
	assert.False(t, tbl.IsNumeric("b"))
	assert.False(t, tbl.IsNumeric("c"), "all-empty column is not numeric")
	assert.True(t, tbl.IsNumeric("d"))
	assert.False(t, tbl.IsNumeric("missing"))
}

func TestTable_SetColumnAndSelect(t *testing.T) {
	tbl := New([]string{"a", "b"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1), Int(2)}))
	require.NoError(t, tbl.AppendRow([]Value{Int(3), Int(4)}))

	require.NoError(t, tbl.SetColumn("c", []Value{String("x"), String("y")}))
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns)

	out, err := tbl.Select([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, out.Columns)
	assert.Equal(t, []Value{String("y"), Int(3)}, out.Rows[1])

	_, err = tbl.Select([]string{"a", "a"})
	assert.True(t, errors.Is(err, ErrDuplicateColumn))
	_, err = tbl.Select([]string{"zz"})
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	assert.Error(t, tbl.SetColumn("d", []Value{Int(1)}))
}

func TestTable_Drop(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1), Int(2), Int(3)}))

	dropped := tbl.Drop("b", "nope")
	assert.Equal(t, []string{"b"}, dropped)
	assert.Equal(t, []string{"a", "c"}, tbl.Columns)
	assert.Equal(t, []Value{Int(1), Int(3)}, tbl.Rows[0])
	assert.Nil(t, tbl.Drop("nope"))
}

func TestTable_CloneIsDeep(t *testing.T) {
	tbl := New([]string{"a"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1)}))

	cp := tbl.Clone()
	cp.Rows[0][0] = Int(9)
	cp.Columns[0] = "z"

	assert.Equal(t, Int(1), tbl.Rows[0][0])
	assert.Equal(t, "a", tbl.Columns[0])
}

func TestReadCSV_BOMAndPadding(t *testing.T) {
	in := "\xEF\xBB\xBFAge,Attrition,Gender\n34,Yes,Male\n41,No\n"

	tbl, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Age", "Attrition", "Gender"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, Empty(), tbl.Rows[1][2])

	_, err = ReadCSV(strings.NewReader(in), CSVOptions{Strict: true})
	assert.True(t, errors.Is(err, ErrRaggedRow))
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Age,Gender\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"Age", "Gender"}, tbl.Columns)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	assert.True(t, errors.Is(err, ErrNoHeader))

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"), CSVOptions{})
	assert.True(t, errors.Is(err, ErrDuplicateColumn))

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"), CSVOptions{})
	assert.True(t, errors.Is(err, ErrRaggedRow))
}

func TestCSV_RoundTripWithBOM(t *testing.T) {
	tbl := New([]string{"员工编号", "年龄", "教育程度", "教育程度编码", "月收入"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1), Int(34), String("本科"), Int(3), Float(5993.5)}))
	require.NoError(t, tbl.AppendRow([]Value{Int(2), Int(49), String("大专"), Int(2), Empty()}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, CSVOptions{BOM: true}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))

	back, err := ReadCSV(&buf, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, tbl, back)
}

func TestXLSX_RoundTripWithTable(t *testing.T) {
	tbl := New([]string{"员工编号", "性别", "月收入"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1), String("男"), Float(5993.5)}))
	require.NoError(t, tbl.AppendRow([]Value{Int(2), String("女"), Int(5130)}))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tbl, XLSXOptions{Sheet: "数据", Table: "HRDATA"}))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"数据"}, f.GetSheetList())
	tables, err := f.GetTables("数据")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "HRDATA", tables[0].Name)
	assert.Equal(t, "A1:C3", tables[0].Range)

	back, err := readXLSX(bytes.NewReader(buf.Bytes()), "数据")
	require.NoError(t, err)
	assert.Equal(t, tbl, back)
}

func TestXLSX_HeaderOnlyUsesAutoFilter(t *testing.T) {
	tbl := New([]string{"员工编号", "性别"})

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tbl, XLSXOptions{Sheet: "数据", Table: "HRDATA"}))

	back, err := readXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"员工编号", "性别"}, back.Columns)
	assert.Equal(t, 0, back.Len())
}

func TestReadXLSX_UnknownSheetIsReported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, New([]string{"a"}), XLSXOptions{Plain: true}))

	_, err := readXLSX(bytes.NewReader(buf.Bytes()), "nope")
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestColumnWidths(t *testing.T) {
	tbl := New([]string{"a", "与现任经理共事年限"})
	require.NoError(t, tbl.AppendRow([]Value{String(strings.Repeat("x", 50)), Int(1)}))

	assert.Equal(t, []float64{30, 11}, columnWidths(tbl, 30))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDetectFormat_Sniffs(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n3,4\n"), 0o644))
	f, err := DetectFormat(csvPath)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	xlsxPath := filepath.Join(dir, "book")
	require.NoError(t, WriteFileAtomic(xlsxPath, func(w io.Writer) error {
		return WriteXLSX(w, New([]string{"a"}), XLSXOptions{Plain: true})
	}))
	f, err = DetectFormat(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
}

func TestReadFile_Missing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{})
	assert.True(t, errors.Is(err, ErrInputNotFound))
}

func TestWriteFileAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.csv")

	err := WriteFileAtomic(dst, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	tbl := New([]string{"a"})
	require.NoError(t, tbl.AppendRow([]Value{Int(1)}))
	require.NoError(t, WriteFile(dst, tbl, WriteOptions{Format: FormatCSV}))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(b))
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/configuration"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n/mappings"
)

const sampleSource = "Age,Attrition,Gender,Education,EmployeeNumber,Department\n" +
	"34,Yes,Male,3,1,Sales\n" +
	"41,No,Female,4,2,Research & Development\n"

func useTestConfig(t *testing.T, outputDir string) {
	t.Helper()
	t.Setenv("HR_L10N_OUTPUT_DIR", outputDir)
	t.Setenv("HR_L10N_VERSION", "v5")
	t.Setenv("HR_L10N_LOCALE", "zh")
	t.Setenv("LOG_LEVEL", "silent")
	t.Setenv("LOG_PATH", "")
	t.Setenv("HR_L10N_MAPPING", "")

	prev := loadConfig
	var cfg *configuration.Configuration
	loadConfig = func() (*configuration.Configuration, error) {
		if cfg != nil {
			return cfg, nil
		}
		c, err := configuration.Load(nil)
		if err != nil {
			return nil, err
		}
		cfg = c
		return c, nil
	}
	t.Cleanup(func() {
		loadConfig = prev
		if cfg != nil {
			cfg.Unload()
		}
	})
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeLine(t *testing.T, line string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), v); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
}

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "source.csv")
	if err := os.WriteFile(path, []byte(sampleSource), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestTranslate_CSVWithBOM(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	src := writeSource(t, tmp)

	stdout, err := runCLI(t, "translate", "--input", src, "--format", "csv")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	var s translateSummary
	decodeLine(t, stdout, &s)
	if s.Status != "ok" || s.Version != "v5" || s.Format != "csv" || s.Rows != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	want := filepath.Join(tmp, "out", "IBM_HR_员工流失数据_本土化版.csv")
	if s.Output != want {
		t.Fatalf("output = %q, want %q", s.Output, want)
	}

	raw, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("\xEF\xBB\xBF")) {
		t.Fatalf("expected UTF-8 BOM")
	}
	got, err := dataset.ReadCSV(bytes.NewReader(raw), dataset.CSVOptions{})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	wantCols := []string{"员工编号", "年龄", "性别", "教育程度", "教育程度编码", "部门", "是否离职"}
	if strings.Join(got.Columns, ",") != strings.Join(wantCols, ",") {
		t.Fatalf("columns = %v, want %v", got.Columns, wantCols)
	}
	if v := got.Get(0, "部门").String(); v != "销售部" {
		t.Fatalf("部门 = %q", v)
	}
	if v := got.Get(1, "教育程度").String(); v != "硕士" {
		t.Fatalf("教育程度 = %q", v)
	}
	if v := got.Get(1, "教育程度编码").String(); v != "4" {
		t.Fatalf("教育程度编码 = %q", v)
	}
}

func TestTranslate_XLSXTable(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	src := writeSource(t, tmp)

	stdout, err := runCLI(t, "translate", "--input", src)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	var s translateSummary
	decodeLine(t, stdout, &s)
	if s.Format != "xlsx" || !strings.HasSuffix(s.Output, ".xlsx") {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(s.MissingRenameKeys) == 0 {
		t.Fatalf("expected missing rename keys for a partial source")
	}

	f, err := excelize.OpenFile(s.Output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer func() { _ = f.Close() }()
	tables, err := f.GetTables("数据")
	if err != nil {
		t.Fatalf("GetTables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "HRDATA" {
		t.Fatalf("unexpected tables: %+v", tables)
	}
}

func TestTranslate_MissingInputTouchesNothing(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	useTestConfig(t, outDir)

	_, err := runCLI(t, "translate", "--input", filepath.Join(tmp, "nope.csv"))
	if got := exitCode(err); got != exitInput {
		t.Fatalf("exit code = %d, want %d (err=%v)", got, exitInput, err)
	}
	if !errors.Is(err, dataset.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
		t.Fatalf("output dir should not exist, stat err=%v", statErr)
	}
}

func TestTranslate_MappingErrors(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	src := writeSource(t, tmp)

	_, err := runCLI(t, "translate", "--input", src, "--version", "v9")
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("unknown version exit = %d, want %d (err=%v)", got, exitUsage, err)
	}

	bad := filepath.Join(tmp, "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: custom\nrenmae: {}\n"), 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	_, err = runCLI(t, "translate", "--input", src, "--mapping", bad)
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("bad mapping exit = %d, want %d (err=%v)", got, exitValidation, err)
	}
	if !errors.Is(err, l10n.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestTranslate_DryRunAndMetrics(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	useTestConfig(t, outDir)
	src := writeSource(t, tmp)
	metricsPath := filepath.Join(tmp, "metrics", "hr_l10n.prom")

	stdout, err := runCLI(t, "translate", "--input", src, "--dry-run", "--metrics-file", metricsPath)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	var s translateSummary
	decodeLine(t, stdout, &s)
	if s.Status != "dry_run" {
		t.Fatalf("status = %q", s.Status)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create %s", outDir)
	}

	raw, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, `hr_l10n_rows_total{version="v5"} 2`) {
		t.Fatalf("metrics missing row count:\n%s", text)
	}
	if !strings.Contains(text, "hr_l10n_sidecar_columns_total") {
		t.Fatalf("metrics missing sidecar count:\n%s", text)
	}
	for _, stage := range []string{"rename", "translate", "drop", "reorder"} {
		if !strings.Contains(text, `hr_l10n_stage_duration_seconds{stage="`+stage+`",version="v5"}`) {
			t.Fatalf("metrics missing %s stage timing:\n%s", stage, text)
		}
	}
}

func TestTranslate_ExtraDrop(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	src := writeSource(t, tmp)

	stdout, err := runCLI(t, "translate", "--input", src, "--format", "csv", "--drop", "性别")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	var s translateSummary
	decodeLine(t, stdout, &s)
	if len(s.Dropped) != 1 || s.Dropped[0] != "性别" {
		t.Fatalf("dropped = %v", s.Dropped)
	}
	got, _, err := dataset.ReadFile(s.Output, dataset.ReadOptions{})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Has("性别") {
		t.Fatalf("性别 should be dropped: %v", got.Columns)
	}
}

func TestResolveOutput(t *testing.T) {
	cfg := &l10n.Config{Version: "v5", Output: l10n.OutputConfig{Format: "xlsx", FileName: "data.xlsx"}}

	cases := []struct {
		name   string
		opts   translateOptions
		path   string
		format dataset.Format
	}{
		{"mapping default", translateOptions{outputDir: "out"}, filepath.Join("out", "data.xlsx"), dataset.FormatXLSX},
		{"format flag renames ext", translateOptions{outputDir: "out", format: "csv"}, filepath.Join("out", "data.csv"), dataset.FormatCSV},
		{"explicit path ext", translateOptions{output: "x/y.csv"}, "x/y.csv", dataset.FormatCSV},
		{"flag beats path", translateOptions{output: "x/y.dat", format: "xlsx"}, "x/y.dat", dataset.FormatXLSX},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path, format, err := resolveOutput(tc.opts, cfg)
			if err != nil {
				t.Fatalf("resolveOutput: %v", err)
			}
			if path != tc.path || format != tc.format {
				t.Fatalf("got (%q, %q), want (%q, %q)", path, format, tc.path, tc.format)
			}
		})
	}

	if _, _, err := resolveOutput(translateOptions{format: "json"}, cfg); exitCode(err) != exitUsage {
		t.Fatalf("expected usage error for unknown format, got %v", err)
	}

	unnamed := &l10n.Config{Version: "custom"}
	path, format, err := resolveOutput(translateOptions{outputDir: "out"}, unnamed)
	if err != nil {
		t.Fatalf("resolveOutput: %v", err)
	}
	if path != filepath.Join("out", "hr_l10n_custom.csv") || format != dataset.FormatCSV {
		t.Fatalf("got (%q, %q)", path, format)
	}
}

func TestProfile_AfterTranslate(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	useTestConfig(t, outDir)
	src := writeSource(t, tmp)

	if _, err := runCLI(t, "translate", "--input", src); err != nil {
		t.Fatalf("translate: %v", err)
	}
	stdout, err := runCLI(t, "profile")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	var s profileSummary
	decodeLine(t, stdout, &s)
	if s.Headcount != 2 || s.Left != 1 || s.Rate != "50.00" {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.AtRisk == nil {
		t.Fatalf("expected at_risk count")
	}
	if s.Output != filepath.Join(outDir, defaultProfileFile) {
		t.Fatalf("output = %q", s.Output)
	}

	f, err := excelize.OpenFile(s.Output)
	if err != nil {
		t.Fatalf("open profile: %v", err)
	}
	defer func() { _ = f.Close() }()
	sheets := f.GetSheetList()
	if len(sheets) == 0 || sheets[0] != "总览" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
}

func TestProfile_Errors(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))

	_, err := runCLI(t, "profile", "--input", filepath.Join(tmp, "missing.xlsx"))
	if got := exitCode(err); got != exitInput {
		t.Fatalf("missing input exit = %d (err=%v)", got, err)
	}

	// Untranslated input has no 是否离职 column.
	src := writeSource(t, tmp)
	_, err = runCLI(t, "profile", "--input", src, "--output", filepath.Join(tmp, "p.xlsx"))
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("untranslated input exit = %d (err=%v)", got, err)
	}

	_, err = runCLI(t, "profile", "--top", "0")
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("bad --top exit = %d (err=%v)", got, err)
	}
}

func TestMappings_ListShowExport(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))

	stdout, err := runCLI(t, "mappings", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 mapping sets, got %d:\n%s", len(lines), stdout)
	}
	var last mappingInfo
	decodeLine(t, lines[4], &last)
	if last.Version != "v5" || !last.Latest || last.Format != "xlsx" || last.Renames != 35 {
		t.Fatalf("unexpected v5 info: %+v", last)
	}

	stdout, err = runCLI(t, "mappings", "show", "--version", "v1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	shown, err := l10n.Parse([]byte(stdout), l10n.EncodingYAML)
	if err != nil {
		t.Fatalf("shown mapping does not parse: %v", err)
	}
	if shown.Version != "v1" || len(shown.DropColumns) == 0 {
		t.Fatalf("unexpected shown mapping: %+v", shown)
	}

	dest := filepath.Join(tmp, "edit", "v3.toml")
	if _, err := runCLI(t, "mappings", "export", "--version", "v3", "--output", dest); err != nil {
		t.Fatalf("export: %v", err)
	}
	exported, err := l10n.LoadFile(dest)
	if err != nil {
		t.Fatalf("exported mapping does not load: %v", err)
	}
	if exported.Version != "v3" || len(exported.Rename) != 35 {
		t.Fatalf("unexpected exported mapping: %+v", exported)
	}

	// The exported file drives translate like a built-in set.
	src := writeSource(t, tmp)
	stdout, err = runCLI(t, "translate", "--input", src, "--mapping", dest, "--dry-run")
	if err != nil {
		t.Fatalf("translate with exported mapping: %v", err)
	}
	var s translateSummary
	decodeLine(t, stdout, &s)
	if s.Version != "v3" || s.Format != "csv" {
		t.Fatalf("unexpected summary: %+v", s)
	}

	_, err = runCLI(t, "mappings", "export", "--output", filepath.Join(tmp, "x.json"))
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("bad extension exit = %d (err=%v)", got, err)
	}
}

func TestMappings_DiffFeedsPatch(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))

	stdout, err := runCLI(t, "mappings", "diff", "--from", "v4", "--to", "v5")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	patchPath := filepath.Join(tmp, "v4-to-v5.json")
	if err := os.WriteFile(patchPath, []byte(stdout), 0o644); err != nil {
		t.Fatalf("write patch: %v", err)
	}

	stdout, err = runCLI(t, "mappings", "show", "--version", "v4", "--patch", patchPath)
	if err != nil {
		t.Fatalf("show with patch: %v", err)
	}
	patched, err := l10n.Parse([]byte(stdout), l10n.EncodingYAML)
	if err != nil {
		t.Fatalf("patched mapping does not parse: %v", err)
	}
	if patched.Version != "v5" || patched.Output.Table != "HRDATA" {
		t.Fatalf("unexpected patched mapping: version=%q output=%+v", patched.Version, patched.Output)
	}

	if _, err := runCLI(t, "mappings", "diff", "--from", "v0"); exitCode(err) != exitUsage {
		t.Fatalf("expected usage error for unknown version, got %v", err)
	}
}

func TestTranslate_PatchOverridesLabel(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	src := writeSource(t, tmp)

	patchPath := filepath.Join(tmp, "sales.json")
	patch := `[{"op": "replace", "path": "/value_maps/部门/Sales", "value": "销售中心"}]`
	if err := os.WriteFile(patchPath, []byte(patch), 0o644); err != nil {
		t.Fatalf("write patch: %v", err)
	}

	stdout, err := runCLI(t, "translate", "--input", src, "--format", "csv", "--patch", patchPath)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	var s translateSummary
	decodeLine(t, stdout, &s)
	got, _, err := dataset.ReadFile(s.Output, dataset.ReadOptions{})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if v := got.Get(0, "部门").String(); v != "销售中心" {
		t.Fatalf("部门 = %q", v)
	}

	bad := filepath.Join(tmp, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"op": "remove", "path": "/nope"}]`), 0o644); err != nil {
		t.Fatalf("write patch: %v", err)
	}
	if _, err := runCLI(t, "translate", "--input", src, "--patch", bad); exitCode(err) != exitValidation {
		t.Fatalf("expected validation error for a patch that does not apply, got %v", err)
	}

	cellRef := filepath.Join(tmp, "cellref.json")
	if err := os.WriteFile(cellRef, []byte(`[{"op": "replace", "path": "/output/table", "value": "A1"}]`), 0o644); err != nil {
		t.Fatalf("write patch: %v", err)
	}
	if _, err := runCLI(t, "translate", "--input", src, "--patch", cellRef); exitCode(err) != exitValidation {
		t.Fatalf("expected validation error for a cell-reference table name, got %v", err)
	}
}

func writeEnvMapping(t *testing.T, dir string) string {
	t.Helper()
	cfg, err := mappings.Latest()
	if err != nil {
		t.Fatalf("load v5: %v", err)
	}
	cfg.Version = "envfile"
	var buf bytes.Buffer
	if err := l10n.Encode(&buf, cfg, l10n.EncodingYAML); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, "env-mapping.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	return path
}

func TestMappingSelection_FlagsBeatEnvironment(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	t.Setenv("HR_L10N_MAPPING", writeEnvMapping(t, tmp))
	src := writeSource(t, tmp)

	translated := func(args ...string) string {
		t.Helper()
		stdout, err := runCLI(t, append([]string{"translate", "--input", src, "--dry-run"}, args...)...)
		if err != nil {
			t.Fatalf("translate %v: %v", args, err)
		}
		var s translateSummary
		decodeLine(t, stdout, &s)
		return s.Version
	}
	shown := func(args ...string) string {
		t.Helper()
		stdout, err := runCLI(t, append([]string{"mappings", "show"}, args...)...)
		if err != nil {
			t.Fatalf("mappings show %v: %v", args, err)
		}
		cfg, err := l10n.Parse([]byte(stdout), l10n.EncodingYAML)
		if err != nil {
			t.Fatalf("shown mapping does not parse: %v", err)
		}
		return cfg.Version
	}

	if v := translated(); v != "envfile" {
		t.Fatalf("translate without flags used %q, want the HR_L10N_MAPPING file", v)
	}
	if v := shown(); v != "envfile" {
		t.Fatalf("mappings show without flags used %q, want the HR_L10N_MAPPING file", v)
	}
	if v := translated("--version", "v3"); v != "v3" {
		t.Fatalf("translate --version v3 used %q", v)
	}
	if v := shown("--version", "v1"); v != "v1" {
		t.Fatalf("mappings show --version v1 used %q", v)
	}
}

func TestTranslate_ValidationMessagesFollowLocale(t *testing.T) {
	tmp := t.TempDir()
	useTestConfig(t, filepath.Join(tmp, "out"))
	t.Setenv("HR_L10N_LOCALE", "en")
	src := writeSource(t, tmp)

	bad := filepath.Join(tmp, "noversion.yaml")
	if err := os.WriteFile(bad, []byte("description: no version\n"), 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	_, err := runCLI(t, "translate", "--input", src, "--mapping", bad)
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("exit = %d, want %d (err=%v)", got, exitValidation, err)
	}
	if !strings.Contains(err.Error(), "version is a required field") {
		t.Fatalf("expected an English validation message, got %v", err)
	}
}

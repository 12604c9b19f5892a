package attrition

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
)

const (
	OverviewSheet  = "总览"
	RiskLevelSheet = "风险分级统计"
	RiskListSheet  = "高流失风险员工"
)

var groupColumns = []string{"分组", "人数", "离职人数", "离职率(%)"}

func rateValue(d decimal.Decimal) dataset.Value {
	return dataset.Float(d.InexactFloat64())
}

// OverviewTable is the headline numbers as a two-column table.
func OverviewTable(s *Summary) *dataset.Table {
	t := dataset.New([]string{"指标", "数值"})
	t.Rows = append(t.Rows,
		[]dataset.Value{dataset.String("员工总数"), dataset.Int(int64(s.Headcount))},
		[]dataset.Value{dataset.String("离职人数"), dataset.Int(int64(s.Left))},
		[]dataset.Value{dataset.String("在职人数"), dataset.Int(int64(s.Active()))},
		[]dataset.Value{dataset.String("整体离职率(%)"), rateValue(s.Rate)},
	)
	if len(s.Skipped) > 0 {
		t.Rows = append(t.Rows, []dataset.Value{dataset.String("未统计维度"), dataset.String(strings.Join(s.Skipped, "、"))})
	}
	return t
}

// BreakdownTable renders one dimension's groups in their ranked order.
func BreakdownTable(b Breakdown) *dataset.Table {
	t := dataset.New(groupColumns)
	for _, g := range b.Groups {
		t.Rows = append(t.Rows, []dataset.Value{
			dataset.String(g.Key),
			dataset.Int(int64(g.Headcount)),
			dataset.Int(int64(g.Left)),
			rateValue(g.Rate),
		})
	}
	return t
}

func riskLevelTable(r *RiskList) *dataset.Table {
	t := dataset.New([]string{levelColumn, "人数", "占在职比例(%)"})
	counts := r.LevelCounts()
	for _, level := range []string{LevelHigh, LevelMedium} {
		n := counts[level]
		t.Rows = append(t.Rows, []dataset.Value{dataset.String(level), dataset.Int(int64(n)), rateValue(Rate(n, r.Active))})
	}
	return t
}

// WriteWorkbook writes the profile as an XLSX workbook: an overview sheet,
// one sheet per dimension and, when risk is non-nil, the at-risk sheets.
func WriteWorkbook(w io.Writer, s *Summary, risk *RiskList) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", OverviewSheet); err != nil {
		return errors.Wrap(err, "overview sheet")
	}
	if err := dataset.WriteSheet(f, OverviewSheet, OverviewTable(s), dataset.XLSXOptions{Table: "OVERVIEW"}); err != nil {
		return errors.Wrap(err, "overview sheet")
	}

	for i, b := range s.Breakdowns {
		if err := addSheet(f, b.Dimension, BreakdownTable(b), fmt.Sprintf("GROUP_%d", i+1)); err != nil {
			return err
		}
	}

	if risk != nil {
		if err := addSheet(f, RiskLevelSheet, riskLevelTable(risk), "RISK_LEVELS"); err != nil {
			return err
		}
		if err := addSheet(f, RiskListSheet, risk.Table(), "RISK_LIST"); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func addSheet(f *excelize.File, name string, t *dataset.Table, table string) error {
	if _, err := f.NewSheet(name); err != nil {
		return errors.Wrapf(err, "sheet %q", name)
	}
	if err := dataset.WriteSheet(f, name, t, dataset.XLSXOptions{Table: table}); err != nil {
		return errors.Wrapf(err, "sheet %q", name)
	}
	return nil
}

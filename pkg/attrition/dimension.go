// Package attrition computes descriptive attrition statistics from a
// localized employee table.
package attrition

import (
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
)

// Band is one numeric bucket. Values in (Low, High] fall into it, or
// [Low, High] when Closed is set.
type Band struct {
	Label  string
	Low    float64
	High   float64
	Closed bool
}

func (b Band) contains(x float64) bool {
	if x > b.High {
		return false
	}
	if b.Closed {
		return x >= b.Low
	}
	return x > b.Low
}

// Dimension is one group-by axis. Without bands every distinct cell value is
// its own group.
type Dimension struct {
	Name   string
	Column string
	Bands  []Band
}

// Key returns the group a cell belongs to. Empty cells and numbers outside
// every band belong to none.
func (d Dimension) Key(v dataset.Value) (string, bool) {
	if v.IsEmpty() {
		return "", false
	}
	if len(d.Bands) == 0 {
		return v.Key(), true
	}
	x, ok := v.AsFloat()
	if !ok {
		return "", false
	}
	for _, b := range d.Bands {
		if b.contains(x) {
			return b.Label, true
		}
	}
	return "", false
}

var (
	AgeBands = []Band{
		{Label: "18-25岁", Low: 18, High: 25},
		{Label: "26-35岁", Low: 25, High: 35},
		{Label: "36-45岁", Low: 35, High: 45},
		{Label: "46-55岁", Low: 45, High: 55},
		{Label: "56-65岁", Low: 55, High: 65},
	}
	TenureBands = []Band{
		{Label: "0-2年", Low: 0, High: 2, Closed: true},
		{Label: "3-5年", Low: 2, High: 5},
		{Label: "6-10年", Low: 5, High: 10},
		{Label: "11-20年", Low: 10, High: 20},
		{Label: "20年以上", Low: 20, High: 50},
	}
	PromotionBands = []Band{
		{Label: "0-1年", Low: -1, High: 1},
		{Label: "2-3年", Low: 1, High: 3},
		{Label: "4-5年", Low: 3, High: 5},
		{Label: "6-10年", Low: 5, High: 10},
		{Label: "10年以上", Low: 10, High: 20},
	}
	TrainingBands = []Band{
		{Label: "0-1次", Low: 0, High: 1, Closed: true},
		{Label: "2次", Low: 1, High: 2},
		{Label: "3次", Low: 2, High: 3},
		{Label: "4次", Low: 3, High: 4},
		{Label: "5-6次", Low: 4, High: 6},
	}
)

// DefaultDimensions are the group-by axes for the v5 column names.
// Satisfaction axes group by the code sidecars so groups stay ordinal.
func DefaultDimensions() []Dimension {
	return []Dimension{
		{Name: "部门", Column: "部门"},
		{Name: "岗位", Column: "岗位"},
		{Name: "是否加班", Column: "是否加班"},
		{Name: "婚姻状况", Column: "婚姻状况"},
		{Name: "性别", Column: "性别"},
		{Name: "年龄组", Column: "年龄", Bands: AgeBands},
		{Name: "工龄组", Column: "总工龄", Bands: TenureBands},
		{Name: "晋升间隔组", Column: "晋升间隔", Bands: PromotionBands},
		{Name: "培训次数组", Column: "年度培训次数", Bands: TrainingBands},
		{Name: "环境满意", Column: "环境满意编码"},
		{Name: "工作满意", Column: "工作满意编码"},
		{Name: "人际关系满意", Column: "人际关系满意编码"},
		{Name: "敬业度", Column: "敬业度编码"},
	}
}

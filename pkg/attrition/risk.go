package attrition

import (
	"sort"
	"strings"

	"github.com/go-faster/errors"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
)

const (
	LevelHigh   = "高风险"
	LevelMedium = "中风险"

	hitsColumn   = "命中数"
	groupsColumn = "命中高流失分组"
	levelColumn  = "风险等级"
)

type RiskOptions struct {
	// TopN is how many of each dimension's highest-rate groups count as
	// high-attrition. Only groups above the overall rate qualify.
	TopN int
	// MinHits is how many high-attrition groups an employee must sit in.
	MinHits int
	// Columns are copied from the source row into the list.
	Columns []string
}

func (o RiskOptions) withDefaults() RiskOptions {
	if o.TopN <= 0 {
		o.TopN = 3
	}
	if o.MinHits <= 0 {
		o.MinHits = 2
	}
	if len(o.Columns) == 0 {
		o.Columns = []string{"员工编号", "岗位", "部门", "年龄", "月收入"}
	}
	return o
}

type RiskEntry struct {
	Values []dataset.Value
	Hits   []string
	Level  string
}

// RiskList is the set of still-employed records that fall into several
// high-attrition groups at once.
type RiskList struct {
	Columns []string
	Entries []RiskEntry
	Active  int
	MinHits int
}

// LevelCounts tallies entries per risk level.
func (r *RiskList) LevelCounts() map[string]int {
	out := make(map[string]int, 2)
	for _, e := range r.Entries {
		out[e.Level]++
	}
	return out
}

// Table renders the list with the hit count, the matched groups and the
// risk level appended as columns.
func (r *RiskList) Table() *dataset.Table {
	cols := append(append([]string(nil), r.Columns...), hitsColumn, groupsColumn, levelColumn)
	t := dataset.New(cols)
	for _, e := range r.Entries {
		row := append(append([]dataset.Value(nil), e.Values...),
			dataset.Int(int64(len(e.Hits))),
			dataset.String(strings.Join(e.Hits, "；")),
			dataset.String(e.Level),
		)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ActiveAtRisk lists employees who have not left and who belong to at least
// MinHits of the high-attrition groups found by s. Entries are ordered by
// hit count, most first, then by their position in t.
func ActiveAtRisk(t *dataset.Table, s *Summary, opts RiskOptions) (*RiskList, error) {
	opts = opts.withDefaults()
	flagIdx := t.Index(s.opts.AttritionColumn)
	if flagIdx < 0 {
		return nil, errors.Wrapf(ErrNoAttritionColumn, "%q", s.opts.AttritionColumn)
	}
	leftSet := s.opts.leftSet()

	type axis struct {
		dim  Dimension
		idx  int
		high map[string]struct{}
	}
	dims := make(map[string]Dimension, len(s.opts.Dimensions))
	for _, d := range s.opts.Dimensions {
		dims[d.Name] = d
	}
	var axes []axis
	for _, b := range s.Breakdowns {
		d, ok := dims[b.Dimension]
		if !ok {
			continue
		}
		idx := t.Index(d.Column)
		if idx < 0 {
			continue
		}
		high := make(map[string]struct{})
		for _, g := range b.Groups {
			if len(high) == opts.TopN || g.Rate.Cmp(s.Rate) <= 0 {
				break
			}
			high[g.Key] = struct{}{}
		}
		if len(high) > 0 {
			axes = append(axes, axis{dim: d, idx: idx, high: high})
		}
	}

	var cols []string
	var colIdx []int
	for _, c := range opts.Columns {
		if i := t.Index(c); i >= 0 {
			cols = append(cols, c)
			colIdx = append(colIdx, i)
		}
	}

	list := &RiskList{Columns: cols, MinHits: opts.MinHits}
	for _, row := range t.Rows {
		flag := row[flagIdx]
		if flag.IsEmpty() {
			continue
		}
		if _, left := leftSet[flag.Key()]; left {
			continue
		}
		list.Active++

		var hits []string
		for _, a := range axes {
			key, ok := a.dim.Key(row[a.idx])
			if !ok {
				continue
			}
			if _, ok := a.high[key]; ok {
				hits = append(hits, a.dim.Name+"="+key)
			}
		}
		if len(hits) < opts.MinHits {
			continue
		}

		values := make([]dataset.Value, len(colIdx))
		for i, ci := range colIdx {
			values[i] = row[ci]
		}
		level := LevelMedium
		if len(hits) >= 2*opts.MinHits {
			level = LevelHigh
		}
		list.Entries = append(list.Entries, RiskEntry{Values: values, Hits: hits, Level: level})
	}

	sort.SliceStable(list.Entries, func(i, j int) bool {
		return len(list.Entries[i].Hits) > len(list.Entries[j].Hits)
	})
	return list, nil
}

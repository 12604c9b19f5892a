package attrition

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
)

const (
	DefaultAttritionColumn = "是否离职"
	DefaultLeftLabel       = "是"
)

var ErrNoAttritionColumn = errors.New("attrition column not found")

var hundred = decimal.NewFromInt(100)

type Options struct {
	// AttritionColumn holds the left/stayed flag. Defaults to 是否离职.
	AttritionColumn string
	// LeftLabels are the flag values that mean the employee left. Defaults
	// to 是 and the untranslated Yes.
	LeftLabels []string
	// Dimensions defaults to DefaultDimensions.
	Dimensions []Dimension
}

func (o Options) withDefaults() Options {
	if o.AttritionColumn == "" {
		o.AttritionColumn = DefaultAttritionColumn
	}
	if len(o.LeftLabels) == 0 {
		o.LeftLabels = []string{DefaultLeftLabel, "Yes"}
	}
	if o.Dimensions == nil {
		o.Dimensions = DefaultDimensions()
	}
	return o
}

func (o Options) leftSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.LeftLabels))
	for _, l := range o.LeftLabels {
		set[l] = struct{}{}
	}
	return set
}

// Group is the attrition tally for one group of one dimension.
type Group struct {
	Key       string          `json:"key"`
	Headcount int             `json:"headcount"`
	Left      int             `json:"left"`
	Rate      decimal.Decimal `json:"rate"`
}

type Breakdown struct {
	Dimension string  `json:"dimension"`
	Column    string  `json:"column"`
	Groups    []Group `json:"groups"`
}

// Summary is the attrition profile of a whole table.
type Summary struct {
	Headcount  int             `json:"headcount"`
	Left       int             `json:"left"`
	Rate       decimal.Decimal `json:"rate"`
	Breakdowns []Breakdown     `json:"breakdowns"`
	Skipped    []string        `json:"skipped,omitempty"`

	opts Options
}

// Active is the number of employees still employed.
func (s *Summary) Active() int { return s.Headcount - s.Left }

// Rate returns left/total as a percentage rounded to two places.
func Rate(left, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(left)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}

// Profile tallies attrition overall and per dimension. Rows with an empty
// attrition flag are not counted. Dimensions whose column is missing are
// listed in Skipped.
func Profile(t *dataset.Table, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	flagIdx := t.Index(opts.AttritionColumn)
	if flagIdx < 0 {
		return nil, errors.Wrapf(ErrNoAttritionColumn, "%q", opts.AttritionColumn)
	}
	leftSet := opts.leftSet()

	s := &Summary{opts: opts}
	type tally struct{ n, left int }
	perDim := make([]map[string]*tally, len(opts.Dimensions))
	idx := make([]int, len(opts.Dimensions))
	for i, d := range opts.Dimensions {
		idx[i] = t.Index(d.Column)
		if idx[i] < 0 {
			s.Skipped = append(s.Skipped, d.Name)
			continue
		}
		perDim[i] = make(map[string]*tally)
	}

	for _, row := range t.Rows {
		flag := row[flagIdx]
		if flag.IsEmpty() {
			continue
		}
		_, left := leftSet[flag.Key()]
		s.Headcount++
		if left {
			s.Left++
		}
		for i, d := range opts.Dimensions {
			if idx[i] < 0 {
				continue
			}
			key, ok := d.Key(row[idx[i]])
			if !ok {
				continue
			}
			tl := perDim[i][key]
			if tl == nil {
				tl = &tally{}
				perDim[i][key] = tl
			}
			tl.n++
			if left {
				tl.left++
			}
		}
	}
	s.Rate = Rate(s.Left, s.Headcount)

	for i, d := range opts.Dimensions {
		if idx[i] < 0 {
			continue
		}
		b := Breakdown{Dimension: d.Name, Column: d.Column}
		for key, tl := range perDim[i] {
			b.Groups = append(b.Groups, Group{Key: key, Headcount: tl.n, Left: tl.left, Rate: Rate(tl.left, tl.n)})
		}
		sortGroups(b.Groups)
		s.Breakdowns = append(s.Breakdowns, b)
	}
	return s, nil
}

// sortGroups orders by rate descending, then by key.
func sortGroups(gs []Group) {
	sort.Slice(gs, func(i, j int) bool {
		if c := gs[i].Rate.Cmp(gs[j].Rate); c != 0 {
			return c > 0
		}
		return gs[i].Key < gs[j].Key
	})
}

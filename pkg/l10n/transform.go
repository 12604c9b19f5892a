package l10n

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/eventbus"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/logging"
)

// RenameColumns relabels every column that has an entry in rename. All
// renames apply at once, so swapping two names works. Keys that name no
// column are returned, sorted, and otherwise ignored.
func RenameColumns(t *dataset.Table, rename map[string]string) (int, []string, error) {
	next := make([]string, len(t.Columns))
	present := make(map[string]struct{}, len(t.Columns))
	renamed := 0
	for i, col := range t.Columns {
		present[col] = struct{}{}
		if dst, ok := rename[col]; ok {
			next[i] = dst
			renamed++
			continue
		}
		next[i] = col
	}

	seen := make(map[string]struct{}, len(next))
	for _, col := range next {
		if _, dup := seen[col]; dup {
			return 0, nil, errors.Wrapf(dataset.ErrDuplicateColumn, "rename produces %q twice", col)
		}
		seen[col] = struct{}{}
	}
	t.Columns = next

	var missing []string
	for src := range rename {
		if _, ok := present[src]; !ok {
			missing = append(missing, src)
		}
	}
	sort.Strings(missing)
	return renamed, missing, nil
}

// lookup is the map-or-keep-original translation of a single cell. It is
// total: a value with no entry comes back unchanged with ok=false.
func lookup(m map[string]string, v dataset.Value) (dataset.Value, bool) {
	if v.IsEmpty() {
		return v, false
	}
	if label, ok := m[v.Key()]; ok {
		return dataset.String(label), true
	}
	return v, false
}

// TranslateValues rewrites the cells of every column covered by maps. A
// covered column that is numeric before translation is first copied into
// <column><suffix>, so the sidecar always holds the original codes. Covered
// columns absent from the table are returned sorted.
func TranslateValues(t *dataset.Table, maps map[string]map[string]string, suffix string) ([]ColumnReport, []string, error) {
	columns := append([]string(nil), t.Columns...)
	var reports []ColumnReport
	visited := make(map[string]struct{}, len(maps))

	for _, col := range columns {
		m, ok := maps[col]
		if !ok {
			continue
		}
		visited[col] = struct{}{}

		values, _ := t.Column(col)
		rep := ColumnReport{Column: col}

		if t.IsNumeric(col) {
			rep.Sidecar = col + suffix
			if err := t.SetColumn(rep.Sidecar, values); err != nil {
				return nil, nil, errors.Wrapf(err, "sidecar for %q", col)
			}
		}

		unmapped := make(map[string]struct{})
		translated := make([]dataset.Value, len(values))
		for i, v := range values {
			out, hit := lookup(m, v)
			translated[i] = out
			switch {
			case hit:
				rep.Translated++
			case !v.IsEmpty():
				rep.PassedThrough++
				unmapped[v.Key()] = struct{}{}
			}
		}
		if err := t.SetColumn(col, translated); err != nil {
			return nil, nil, errors.Wrapf(err, "translate %q", col)
		}

		for k := range unmapped {
			rep.Unmapped = append(rep.Unmapped, k)
		}
		sort.Strings(rep.Unmapped)
		if len(rep.Unmapped) > maxUnmappedSamples {
			rep.Unmapped = rep.Unmapped[:maxUnmappedSamples]
		}
		reports = append(reports, rep)
	}

	var missing []string
	for col := range maps {
		if _, ok := visited[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return reports, missing, nil
}

// DropColumns removes the denylisted columns that are present.
func DropColumns(t *dataset.Table, deny []string) []string {
	return t.Drop(deny...)
}

// ColumnOrder computes the output layout: each listed column that exists,
// immediately followed by its sidecar when there is one, then every column
// not yet placed in its current relative order.
func ColumnOrder(columns, order []string, suffix string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	out := make([]string, 0, len(columns))
	placed := make(map[string]struct{}, len(columns))
	emit := func(c string) {
		if _, ok := present[c]; !ok {
			return
		}
		if _, done := placed[c]; done {
			return
		}
		placed[c] = struct{}{}
		out = append(out, c)
	}

	for _, c := range order {
		if _, ok := present[c]; !ok {
			continue
		}
		emit(c)
		emit(c + suffix)
	}
	for _, c := range columns {
		emit(c)
	}
	return out
}

func ReorderColumns(t *dataset.Table, order []string, suffix string) (*dataset.Table, error) {
	return t.Select(ColumnOrder(t.Columns, order, suffix))
}

type Stage string

const (
	StageRename    Stage = "rename"
	StageTranslate Stage = "translate"
	StageDrop      Stage = "drop"
	StageReorder   Stage = "reorder"
)

// StageEvent is published after each pipeline stage completes.
type StageEvent struct {
	Version string
	Stage   Stage
	Rows    int
	Columns int
	Elapsed time.Duration
}

// Transformer runs the localization pipeline for one mapping set.
type Transformer struct {
	cfg    *Config
	events *eventbus.Bus[StageEvent]
}

func NewTransformer(cfg *Config) *Transformer {
	return &Transformer{cfg: cfg}
}

// WithEvents makes Apply publish a StageEvent to bus after every stage.
func (tr *Transformer) WithEvents(bus *eventbus.Bus[StageEvent]) *Transformer {
	tr.events = bus
	return tr
}

func (tr *Transformer) Config() *Config { return tr.cfg }

// stageDone publishes the event for a finished stage. Subscriber failures
// are logged and recorded on rep; they never fail the run.
func (tr *Transformer) stageDone(logger logrus.FieldLogger, rep *Report, stage Stage, t *dataset.Table, started time.Time) time.Time {
	now := time.Now()
	if tr.events == nil {
		return now
	}
	err := tr.events.PublishE(StageEvent{
		Version: tr.cfg.Version,
		Stage:   stage,
		Rows:    t.Len(),
		Columns: len(t.Columns),
		Elapsed: now.Sub(started),
	})
	if err != nil && !errors.Is(err, eventbus.ErrNoSubscribers) {
		logger.WithError(err).WithField("stage", stage).Warn("stage subscriber failed")
		rep.StageErrors = append(rep.StageErrors, string(stage)+": "+err.Error())
	}
	return now
}

// Apply runs rename, value translation, denylist drop and reorder on a copy
// of in. in itself is never modified.
func (tr *Transformer) Apply(ctx context.Context, in *dataset.Table) (*dataset.Table, *Report, error) {
	logger := logging.FromContext(ctx).WithField("version", tr.cfg.Version)
	suffix := tr.cfg.Suffix()

	t := in.Clone()
	rep := &Report{
		Version:      tr.cfg.Version,
		Rows:         t.Len(),
		InputColumns: len(t.Columns),
	}

	started := time.Now()
	sourceColumns := append([]string(nil), t.Columns...)
	renamed, missing, err := RenameColumns(t, tr.cfg.Rename)
	if err != nil {
		return nil, nil, err
	}
	rep.Renamed = renamed
	rep.MissingRenameKeys = missing
	if len(missing) > 0 {
		rep.Suggestions = suggestColumns(missing, sourceColumns, tr.cfg.Rename)
		for _, key := range missing {
			fields := logrus.Fields{"key": key}
			if s, ok := rep.Suggestions[key]; ok {
				fields["did_you_mean"] = s
			}
			logger.WithFields(fields).Warn("rename key not found in input")
		}
	}
	logger.WithFields(logrus.Fields{"renamed": renamed, "missing": len(missing)}).Info("columns renamed")
	started = tr.stageDone(logger, rep, StageRename, t, started)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cols, missingValueCols, err := TranslateValues(t, tr.cfg.ValueMaps, suffix)
	if err != nil {
		return nil, nil, err
	}
	rep.Translated = cols
	rep.MissingValueColumns = missingValueCols
	for _, c := range cols {
		fields := logrus.Fields{"column": c.Column, "translated": c.Translated, "passed_through": c.PassedThrough}
		if c.Sidecar != "" {
			rep.Sidecars = append(rep.Sidecars, c.Sidecar)
			fields["sidecar"] = c.Sidecar
		}
		logger.WithFields(fields).Debug("column translated")
		if c.PassedThrough > 0 {
			logger.WithFields(logrus.Fields{"column": c.Column, "values": c.Unmapped}).Warn("values without translation kept as-is")
		}
	}
	for _, col := range missingValueCols {
		logger.WithField("column", col).Debug("value map column not in input")
	}
	logger.WithFields(logrus.Fields{"columns": len(cols), "sidecars": len(rep.Sidecars)}).Info("values translated")
	started = tr.stageDone(logger, rep, StageTranslate, t, started)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rep.Dropped = DropColumns(t, tr.cfg.DropColumns)
	if len(rep.Dropped) > 0 {
		logger.WithField("columns", rep.Dropped).Info("denylisted columns dropped")
	}
	started = tr.stageDone(logger, rep, StageDrop, t, started)

	out, err := ReorderColumns(t, tr.cfg.OutputOrder, suffix)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reorder")
	}
	tr.stageDone(logger, rep, StageReorder, out, started)
	rep.OutputColumns = len(out.Columns)
	rep.Columns = append([]string(nil), out.Columns...)
	return out, rep, nil
}

package l10n

// maxUnmappedSamples caps the distinct unmapped raw values kept per column.
const maxUnmappedSamples = 10

// ColumnReport describes what value translation did to one column.
type ColumnReport struct {
	Column        string   `json:"column"`
	Sidecar       string   `json:"sidecar,omitempty"`
	Translated    int      `json:"translated"`
	PassedThrough int      `json:"passed_through"`
	Unmapped      []string `json:"unmapped,omitempty"`
}

// Report summarizes one transform run. Nothing in it is an error: missing
// keys and unmapped values are tolerated and only surfaced here.
type Report struct {
	Version       string `json:"version"`
	Rows          int    `json:"rows"`
	InputColumns  int    `json:"input_columns"`
	OutputColumns int    `json:"output_columns"`

	Renamed           int               `json:"renamed"`
	MissingRenameKeys []string          `json:"missing_rename_keys,omitempty"`
	Suggestions       map[string]string `json:"suggestions,omitempty"`

	Translated          []ColumnReport `json:"translated,omitempty"`
	MissingValueColumns []string       `json:"missing_value_columns,omitempty"`
	Sidecars            []string       `json:"sidecars,omitempty"`
	Dropped             []string       `json:"dropped,omitempty"`

	Columns []string `json:"columns"`
	// StageErrors holds failures of stage event subscribers, one per stage.
	StageErrors []string `json:"stage_errors,omitempty"`
}

// UnmappedTotal counts cells that kept their raw value because their column's
// map had no entry for it.
func (r *Report) UnmappedTotal() int {
	n := 0
	for _, c := range r.Translated {
		n += c.PassedThrough
	}
	return n
}

func (r *Report) TranslatedColumns() []string {
	out := make([]string, len(r.Translated))
	for i, c := range r.Translated {
		out[i] = c.Column
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/eventbus"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n/mappings"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/logging"
)

type translateOptions struct {
	input       string
	outputDir   string
	output      string
	version     string
	mappingPath string
	patchPath   string
	format      string
	sheet       string
	drops       []string
	strict      bool
	dryRun      bool
	metricsFile string
}

func newTranslateCmd(st *cliState) *cobra.Command {
	var opts translateOptions

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Rename columns, translate values and write the localized dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyDefaults(cmd, st)
			return runTranslate(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Source dataset, CSV or XLSX (default: $HR_L10N_INPUT)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for the output file (default: $HR_L10N_OUTPUT_DIR)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file path (overrides --output-dir and the mapping's file name)")
	cmd.Flags().StringVar(&opts.version, "version", "", "Built-in mapping set: v1..v5 (default: $HR_L10N_VERSION)")
	cmd.Flags().StringVar(&opts.mappingPath, "mapping", "", "Mapping set file, YAML or TOML (overrides --version)")
	cmd.Flags().StringVar(&opts.patchPath, "patch", "", "JSON patch (RFC 6902) applied on top of the mapping set")
	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: csv|xlsx (default: from the mapping set)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet to read when the input is XLSX (default: first sheet)")
	cmd.Flags().StringSliceVar(&opts.drops, "drop", nil, "Extra localized column names to drop (repeatable)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Reject CSV rows shorter than the header instead of padding them")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Run the transform but write nothing")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")

	return cmd
}

func (o *translateOptions) applyDefaults(cmd *cobra.Command, st *cliState) {
	o.version, o.mappingPath = mappingDefaults(cmd, st, o.version, o.mappingPath)
	if st.cfg == nil {
		return
	}
	o.input = firstNonEmpty(o.input, st.cfg.Input)
	o.outputDir = firstNonEmpty(o.outputDir, st.cfg.OutputDir)
}

// mappingDefaults fills the mapping selection from the environment. Any
// explicit --mapping or --version flag wins over both HR_L10N_MAPPING and
// HR_L10N_VERSION; HR_L10N_MAPPING in turn wins over HR_L10N_VERSION.
func mappingDefaults(cmd *cobra.Command, st *cliState, version, path string) (string, string) {
	if path != "" {
		return version, path
	}
	if cmd.Flags().Changed("version") && version != "" {
		return version, ""
	}
	if st.cfg != nil {
		if st.cfg.MappingPath != "" {
			return version, st.cfg.MappingPath
		}
		version = firstNonEmpty(version, st.cfg.Version)
	}
	return firstNonEmpty(version, mappings.LatestVersion), ""
}

type translateSummary struct {
	Status            string            `json:"status"`
	RunID             string            `json:"run_id"`
	Version           string            `json:"version"`
	Input             string            `json:"input"`
	InputFormat       string            `json:"input_format"`
	Output            string            `json:"output"`
	Format            string            `json:"format"`
	Rows              int               `json:"rows"`
	Columns           int               `json:"columns"`
	Sidecars          []string          `json:"sidecars"`
	TranslatedColumns []string          `json:"translated_columns"`
	MissingRenameKeys []string          `json:"missing_rename_keys"`
	Suggestions       map[string]string `json:"suggestions,omitempty"`
	Dropped           []string          `json:"dropped,omitempty"`
	UnmappedValues    int               `json:"unmapped_values"`
	StageErrors       []string          `json:"stage_errors,omitempty"`
	DurationMS        int64             `json:"duration_ms"`
}

// loadMapping resolves the mapping set: an explicit file wins over a
// built-in version. A patch file, if any, is applied last.
func loadMapping(version, path, patchPath string) (*l10n.Config, error) {
	var cfg *l10n.Config
	var err error
	if path != "" {
		cfg, err = l10n.LoadFile(path)
		if err != nil {
			return nil, withCode(mappingCode(err), fmt.Errorf("--mapping: %w", err))
		}
	} else {
		cfg, err = mappings.Load(version)
		if err != nil {
			return nil, withCode(mappingCode(err), fmt.Errorf("--version: %w", err))
		}
	}
	if patchPath == "" {
		return cfg, nil
	}
	patch, err := os.ReadFile(patchPath)
	if err != nil {
		return nil, withCode(exitInput, fmt.Errorf("--patch: %w", err))
	}
	cfg, err = l10n.ApplyPatch(cfg, patch)
	if err != nil {
		return nil, withCode(mappingCode(err), fmt.Errorf("--patch %s: %w", patchPath, err))
	}
	return cfg, nil
}

// resolveOutput decides the output format and path. An explicit --output
// path's extension picks the format unless --format says otherwise.
func resolveOutput(opts translateOptions, cfg *l10n.Config) (string, dataset.Format, error) {
	rawFormat := opts.format
	if rawFormat == "" && opts.output != "" {
		if f, ok := dataset.FormatFromExt(opts.output); ok {
			rawFormat = string(f)
		}
	}
	rawFormat = firstNonEmpty(rawFormat, cfg.Output.Format, string(dataset.FormatCSV))
	format, err := dataset.ParseFormat(rawFormat)
	if err != nil {
		return "", "", withCode(exitUsage, fmt.Errorf("--format: %w", err))
	}

	if opts.output != "" {
		return opts.output, format, nil
	}
	name := cfg.Output.FileName
	if name == "" {
		name = "hr_l10n_" + cfg.Version + format.Ext()
	} else if ext := filepath.Ext(name); !strings.EqualFold(ext, format.Ext()) {
		name = strings.TrimSuffix(name, ext) + format.Ext()
	}
	return filepath.Join(opts.outputDir, name), format, nil
}

func runTranslate(ctx context.Context, cmd *cobra.Command, opts translateOptions) error {
	if strings.TrimSpace(opts.input) == "" {
		return withCode(exitUsage, fmt.Errorf("--input is required"))
	}
	startedAt := time.Now()
	runID := uuid.New()
	logger := logging.FromContext(ctx).WithField("run_id", runID.String())
	ctx = logging.WithLogger(ctx, logger)

	cfg, err := loadMapping(opts.version, opts.mappingPath, opts.patchPath)
	if err != nil {
		return err
	}
	cfg = cfg.WithDrops(opts.drops...)

	outPath, format, err := resolveOutput(opts, cfg)
	if err != nil {
		return err
	}

	in, inFormat, err := dataset.ReadFile(opts.input, dataset.ReadOptions{Sheet: opts.sheet, Strict: opts.strict})
	if err != nil {
		return withCode(readCode(err), fmt.Errorf("read input: %w", err))
	}
	logger.WithFields(logrus.Fields{
		"input":   opts.input,
		"format":  inFormat,
		"rows":    in.Len(),
		"columns": len(in.Columns),
	}).Info("input loaded")

	var metrics *runMetrics
	if opts.metricsFile != "" {
		metrics = newRunMetrics(cfg.Version)
	}
	events := eventbus.New[l10n.StageEvent](logger)
	events.Subscribe(func(e l10n.StageEvent) error {
		logger.WithFields(logrus.Fields{
			"stage":   e.Stage,
			"columns": e.Columns,
			"elapsed": e.Elapsed,
		}).Debug("stage done")
		return nil
	})
	if metrics != nil {
		events.Subscribe(metrics.observeStage)
	}

	out, rep, err := l10n.NewTransformer(cfg).WithEvents(events).Apply(ctx, in)
	if err != nil {
		return withCode(exitValidation, fmt.Errorf("transform: %w", err))
	}

	status := "dry_run"
	if !opts.dryRun {
		if err := ensureParent(outPath); err != nil {
			return err
		}
		err := dataset.WriteFile(outPath, out, dataset.WriteOptions{
			Format: format,
			CSV:    dataset.CSVOptions{BOM: true},
			XLSX: dataset.XLSXOptions{
				Sheet:      cfg.Output.Sheet,
				Table:      cfg.Output.Table,
				TableStyle: cfg.Output.TableStyle,
			},
		})
		if err != nil {
			return withCode(exitWrite, fmt.Errorf("write %s: %w", outPath, err))
		}
		status = "ok"
		logger.WithFields(logrus.Fields{"output": outPath, "format": format}).Info("output written")
	}

	elapsed := time.Since(startedAt)
	if metrics != nil {
		metrics.observe(rep, elapsed)
		if err := metrics.writeTextfile(opts.metricsFile); err != nil {
			return err
		}
	}

	s := translateSummary{
		Status:            status,
		RunID:             runID.String(),
		Version:           cfg.Version,
		Input:             opts.input,
		InputFormat:       string(inFormat),
		Output:            outPath,
		Format:            string(format),
		Rows:              out.Len(),
		Columns:           len(out.Columns),
		Sidecars:          nonNil(rep.Sidecars),
		TranslatedColumns: nonNil(rep.TranslatedColumns()),
		MissingRenameKeys: nonNil(rep.MissingRenameKeys),
		Suggestions:       rep.Suggestions,
		Dropped:           rep.Dropped,
		UnmappedValues:    rep.UnmappedTotal(),
		StageErrors:       rep.StageErrors,
		DurationMS:        elapsed.Milliseconds(),
	}
	return writeJSONLine(cmd.OutOrStdout(), s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

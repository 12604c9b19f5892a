package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/attrition"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n/mappings"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/logging"
)

const defaultProfileFile = "IBM_HR_员工流失分析汇总.xlsx"

type profileOptions struct {
	input   string
	output  string
	sheet   string
	topN    int
	minHits int
	noRisk  bool
}

func newProfileCmd(st *cliState) *cobra.Command {
	var opts profileOptions

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Summarize attrition rates by group from a localized dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.applyDefaults(st); err != nil {
				return err
			}
			return runProfile(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Localized dataset (default: the latest mapping set's output in $HR_L10N_OUTPUT_DIR)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Summary workbook path (default: "+defaultProfileFile+" in $HR_L10N_OUTPUT_DIR)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet to read when the input is XLSX (default: first sheet)")
	cmd.Flags().IntVar(&opts.topN, "top", 3, "Highest-attrition groups per dimension that count as risk factors")
	cmd.Flags().IntVar(&opts.minHits, "min-hits", 2, "Risk factors an active employee must match to be listed")
	cmd.Flags().BoolVar(&opts.noRisk, "no-risk", false, "Skip the at-risk employee sheets")

	return cmd
}

func (o *profileOptions) applyDefaults(st *cliState) error {
	if o.topN <= 0 || o.minHits <= 0 {
		return withCode(exitUsage, fmt.Errorf("--top and --min-hits must be positive"))
	}
	if st.cfg == nil {
		return nil
	}
	if o.input == "" {
		latest, err := mappings.Latest()
		if err != nil {
			return withCode(exitValidation, err)
		}
		o.input = filepath.Join(st.cfg.OutputDir, latest.Output.FileName)
	}
	if o.output == "" {
		o.output = filepath.Join(st.cfg.OutputDir, defaultProfileFile)
	}
	return nil
}

type profileSummary struct {
	Status     string   `json:"status"`
	RunID      string   `json:"run_id"`
	Input      string   `json:"input"`
	Output     string   `json:"output"`
	Headcount  int      `json:"headcount"`
	Left       int      `json:"left"`
	Rate       string   `json:"rate_percent"`
	Dimensions []string `json:"dimensions"`
	Skipped    []string `json:"skipped,omitempty"`
	AtRisk     *int     `json:"at_risk,omitempty"`
}

func runProfile(ctx context.Context, stdout io.Writer, opts profileOptions) error {
	if strings.TrimSpace(opts.input) == "" {
		return withCode(exitUsage, fmt.Errorf("--input is required"))
	}
	if strings.TrimSpace(opts.output) == "" {
		return withCode(exitUsage, fmt.Errorf("--output is required"))
	}
	runID := uuid.New()
	logger := logging.FromContext(ctx).WithField("run_id", runID.String())

	t, _, err := dataset.ReadFile(opts.input, dataset.ReadOptions{Sheet: opts.sheet})
	if err != nil {
		return withCode(readCode(err), fmt.Errorf("read input: %w", err))
	}

	s, err := attrition.Profile(t, attrition.Options{})
	if err != nil {
		return withCode(exitValidation, err)
	}
	for _, name := range s.Skipped {
		logger.WithField("dimension", name).Debug("dimension column not in input")
	}

	var risk *attrition.RiskList
	if !opts.noRisk {
		risk, err = attrition.ActiveAtRisk(t, s, attrition.RiskOptions{TopN: opts.topN, MinHits: opts.minHits})
		if err != nil {
			return withCode(exitValidation, err)
		}
	}

	if err := ensureParent(opts.output); err != nil {
		return err
	}
	if err := dataset.WriteFileAtomic(opts.output, func(w io.Writer) error {
		return attrition.WriteWorkbook(w, s, risk)
	}); err != nil {
		return withCode(exitWrite, fmt.Errorf("write %s: %w", opts.output, err))
	}

	fields := logrus.Fields{"headcount": s.Headcount, "left": s.Left, "rate": s.Rate.StringFixed(2)}
	out := profileSummary{
		Status:    "ok",
		RunID:     runID.String(),
		Input:     opts.input,
		Output:    opts.output,
		Headcount: s.Headcount,
		Left:      s.Left,
		Rate:      s.Rate.StringFixed(2),
		Skipped:   s.Skipped,
	}
	for _, b := range s.Breakdowns {
		out.Dimensions = append(out.Dimensions, b.Dimension)
	}
	if risk != nil {
		n := len(risk.Entries)
		out.AtRisk = &n
		fields["at_risk"] = n
	}
	logger.WithFields(fields).Info("attrition profile written")
	return writeJSONLine(stdout, out)
}

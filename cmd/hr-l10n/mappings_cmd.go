package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n/mappings"
)

func newMappingsCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and export the mapping sets",
	}
	cmd.AddCommand(newMappingsListCmd())
	cmd.AddCommand(newMappingsShowCmd(st))
	cmd.AddCommand(newMappingsExportCmd(st))
	cmd.AddCommand(newMappingsDiffCmd())
	return cmd
}

type mappingInfo struct {
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Format      string   `json:"format"`
	FileName    string   `json:"file_name"`
	Renames     int      `json:"renames"`
	ValueMaps   int      `json:"value_maps"`
	Drops       []string `json:"drop_columns,omitempty"`
	Latest      bool     `json:"latest,omitempty"`
}

func newMappingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in mapping sets, one JSON line each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, v := range mappings.Versions() {
				cfg, err := mappings.Load(v)
				if err != nil {
					return withCode(exitValidation, err)
				}
				info := mappingInfo{
					Version:     cfg.Version,
					Description: cfg.Description,
					Format:      firstNonEmpty(cfg.Output.Format, string(dataset.FormatCSV)),
					FileName:    cfg.Output.FileName,
					Renames:     len(cfg.Rename),
					ValueMaps:   len(cfg.ValueMaps),
					Drops:       cfg.DropColumns,
					Latest:      v == mappings.LatestVersion,
				}
				if err := writeJSONLine(cmd.OutOrStdout(), info); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type mappingSource struct {
	version string
	path    string
	patch   string
}

func (s *mappingSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.version, "version", "", "Built-in mapping set: v1..v5 (default: $HR_L10N_VERSION)")
	cmd.Flags().StringVar(&s.path, "mapping", "", "Mapping set file, YAML or TOML (overrides --version)")
	cmd.Flags().StringVar(&s.patch, "patch", "", "JSON patch (RFC 6902) applied on top of the mapping set")
}

func (s *mappingSource) load(cmd *cobra.Command, st *cliState) (*l10n.Config, error) {
	version, path := mappingDefaults(cmd, st, s.version, s.path)
	return loadMapping(version, path, s.patch)
}

func newMappingsShowCmd(st *cliState) *cobra.Command {
	var src mappingSource
	var encoding string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a mapping set after validation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := src.load(cmd, st)
			if err != nil {
				return err
			}
			enc := l10n.Encoding(strings.ToLower(strings.TrimSpace(encoding)))
			if err := l10n.Encode(cmd.OutOrStdout(), cfg, enc); err != nil {
				return withCode(exitUsage, fmt.Errorf("--encoding: %w", err))
			}
			return nil
		},
	}
	src.bind(cmd)
	cmd.Flags().StringVar(&encoding, "encoding", string(l10n.EncodingYAML), "Output encoding: yaml|toml")
	return cmd
}

func newMappingsExportCmd(st *cliState) *cobra.Command {
	var src mappingSource
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a mapping set to a YAML or TOML file for editing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" {
				return withCode(exitUsage, fmt.Errorf("--output is required"))
			}
			enc, err := l10n.EncodingFromPath(output)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("--output: %w", err))
			}
			cfg, err := src.load(cmd, st)
			if err != nil {
				return err
			}
			if err := ensureParent(output); err != nil {
				return err
			}
			if err := dataset.WriteFileAtomic(output, func(w io.Writer) error {
				return l10n.Encode(w, cfg, enc)
			}); err != nil {
				return withCode(exitWrite, fmt.Errorf("write %s: %w", output, err))
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]string{
				"status":   "ok",
				"version":  cfg.Version,
				"output":   output,
				"encoding": string(enc),
			})
		},
	}
	src.bind(cmd)
	cmd.Flags().StringVar(&output, "output", "", "Destination file (.yaml, .yml or .toml)")
	return cmd
}

// resolveMappingRef loads ref as a file when it has a mapping file extension
// and as a built-in version otherwise.
func resolveMappingRef(ref string) (*l10n.Config, error) {
	if _, err := l10n.EncodingFromPath(ref); err == nil {
		return loadMapping("", ref, "")
	}
	return loadMapping(ref, "", "")
}

func newMappingsDiffCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the JSON patch that turns one mapping set into another",
		Long: "Print the RFC 6902 patch between two mapping sets. Each side is a built-in\n" +
			"version or a YAML/TOML file. The output can be passed to --patch.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				return withCode(exitUsage, fmt.Errorf("--from and --to are required"))
			}
			src, err := resolveMappingRef(from)
			if err != nil {
				return err
			}
			dst, err := resolveMappingRef(to)
			if err != nil {
				return err
			}
			patch, err := l10n.Diff(src, dst)
			if err != nil {
				return withCode(exitValidation, err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(patch)); err != nil {
				return withCode(exitWrite, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source mapping set: version or file")
	cmd.Flags().StringVar(&to, "to", mappings.LatestVersion, "Target mapping set: version or file")
	return cmd
}

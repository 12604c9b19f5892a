package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/configuration"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/logging"
)

// loadConfig is swapped in tests.
var loadConfig = configuration.Use

type cliState struct {
	cfg     *configuration.Configuration
	logger  *logrus.Logger
	verbose bool
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	cmd := &cobra.Command{
		Use:           "hr-l10n",
		Short:         "Localize the IBM HR attrition dataset into Chinese and profile it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("configuration: %w", err))
			}
			st.cfg = cfg
			st.logger = cfg.Logger()
			l10n.SetMessageLocale(cfg.LocaleTag())
			if st.verbose {
				st.logger.SetLevel(logrus.DebugLevel)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithLogger(ctx, st.logger))
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(newTranslateCmd(st))
	cmd.AddCommand(newProfileCmd(st))
	cmd.AddCommand(newMappingsCmd(st))
	return cmd
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

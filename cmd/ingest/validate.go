package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"dataingest/internal/config"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			issues := config.ValidateConfig(a.cfg)
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return errors.Mark(errors.Newf("%d configuration issue(s)", len(issues)), errInvalidConfig)
			}
			src := a.cfgPath
			if src == "" {
				src = "defaults"
			}
			fmt.Fprintf(out, "configuration is valid (%s)\n", src)
			return nil
		},
	}
}

// checkConfig logs warnings and fails on errors.
func (a *app) checkConfig() error {
	issues := config.ValidateConfig(a.cfg)
	var msgs []string
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			msgs = append(msgs, iss.Path+": "+iss.Message)
			continue
		}
		a.log.Sugar().Warnf("config: %s: %s", iss.Path, iss.Message)
	}
	if len(msgs) == 0 {
		return nil
	}
	err := errors.Mark(errors.Newf("invalid configuration: %v", msgs), errInvalidConfig)
	return errors.WithHint(err, "run `ingest validate` for the full list")
}

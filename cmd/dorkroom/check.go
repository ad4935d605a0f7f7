package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dorkroom/internal/core"
)

type checkReport struct {
	Stats      core.Stats       `json:"stats"`
	Violations []core.Violation `json:"violations"`
}

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report referential integrity problems in the dataset",
		Args:  cobra.NoArgs,
	}
	check := a.withEngine(func(cmd *cobra.Command, _ []string) error {
		stats, err := a.engine().Stats()
		if err != nil {
			return err
		}
		violations, err := a.engine().Warnings()
		if err != nil {
			return err
		}
		if violations == nil {
			violations = []core.Violation{}
		}
		if err := a.print(checkReport{Stats: stats, Violations: violations}); err != nil {
			return err
		}
		if len(violations) > 0 {
			return fmt.Errorf("%d integrity violation(s)", len(violations))
		}
		return nil
	})
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		// Load with every combination kept so all findings are reported.
		a.extraOpts = append(a.extraOpts, core.WithIndexPolicy(core.PolicyKeep))
		return check(cmd, args)
	}
	return cmd
}

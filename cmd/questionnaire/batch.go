package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/questionnaire"
)

func (a *app) batchCmd() *cobra.Command {
	var (
		out     string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "batch [questionnaire.yaml]",
		Short: "Answer every question of a questionnaire file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.loadQuestionnaire(args[0])
			if err != nil {
				return err
			}

			o, cleanup, err := a.assemble(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			runner := questionnaire.NewRunner(o,
				questionnaire.WithConcurrency(a.cfg.Batch.Concurrency),
				questionnaire.WithVerbose(verbose))
			report, runErr := runner.Run(cmd.Context(), q)
			if err := a.writeReport(cmd, out, report); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the YAML report here instead of stdout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "request verbose traces")
	return cmd
}

func (a *app) loadQuestionnaire(path string) (*domain.Questionnaire, error) {
	return questionnaire.Load(path, questionnaire.WithDefaults(a.cfg.Defaults.CharLimit, a.cfg.Defaults.MaxRetries))
}

func (a *app) writeReport(cmd *cobra.Command, path string, report *domain.Report) error {
	if path == "" {
		return questionnaire.Encode(cmd.OutOrStdout(), report)
	}
	if err := questionnaire.Save(path, report); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d answered, report written to %s\n",
		report.Summary.Succeeded, report.Summary.Total, path)
	return nil
}

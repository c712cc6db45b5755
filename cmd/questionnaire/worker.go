package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-questionnaire/internal/activity"
	"github.com/ahrav/go-questionnaire/internal/worker"
	"github.com/ahrav/go-questionnaire/pkg/events"
)

func (a *app) workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that answers submitted questionnaires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, cleanup, err := a.assemble(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := worker.Dial(a.cfg.Temporal, a.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			acts := activity.NewActivities(o, events.NewSlogEventSink(a.logger, slog.LevelInfo))
			w := worker.New(c, a.cfg.Temporal, acts)
			a.logger.Info("worker starting",
				"host_port", a.cfg.Temporal.HostPort,
				"namespace", a.cfg.Temporal.Namespace,
				"task_queue", a.cfg.Temporal.TaskQueue)

			// Run stops on the first value from its interrupt channel.
			stop := make(chan any)
			go func() {
				<-cmd.Context().Done()
				close(stop)
			}()
			return w.Run(stop)
		},
	}
}

func (a *app) submitCmd() *cobra.Command {
	var (
		out     string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "submit [questionnaire.yaml]",
		Short: "Start a questionnaire workflow on Temporal and wait for the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.loadQuestionnaire(args[0])
			if err != nil {
				return err
			}

			c, err := worker.Dial(a.cfg.Temporal, a.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := worker.Submit(cmd.Context(), c, a.cfg.Temporal, q, verbose)
			if err != nil {
				return err
			}
			return a.writeReport(cmd, out, report)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the YAML report here instead of stdout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "keep reasoning transcripts in the report")
	return cmd
}

package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-questionnaire/internal/activity"
	"github.com/ahrav/go-questionnaire/internal/config"
	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/workflow"
)

// Dial connects to the Temporal frontend described by cfg, logging through
// logger.
func Dial(cfg config.Temporal, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    log.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// New returns a worker polling cfg.TaskQueue with everything registered.
func New(c client.Client, cfg config.Temporal, acts *activity.Activities) sdkworker.Worker {
	w := sdkworker.New(c, cfg.TaskQueue, sdkworker.Options{})
	RegisterAll(w, acts)
	return w
}

// Submit starts a questionnaire workflow and waits for its report.
func Submit(ctx context.Context, c client.Client, cfg config.Temporal, q *domain.Questionnaire, verbose bool) (*domain.Report, error) {
	opts := client.StartWorkflowOptions{
		ID:        "questionnaire-" + uuid.NewString(),
		TaskQueue: cfg.TaskQueue,
	}
	req := workflow.Request{Questionnaire: *q, Verbose: verbose, ActivityTimeout: cfg.Timeout}

	run, err := c.ExecuteWorkflow(ctx, opts, workflow.Name, req)
	if err != nil {
		return nil, fmt.Errorf("start workflow: %w", err)
	}
	var report domain.Report
	if err := run.Get(ctx, &report); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	return &report, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/checker"
	"github.com/ahrav/go-questionnaire/internal/config"
	"github.com/ahrav/go-questionnaire/internal/orchestrator"
)

// assemble builds the configured backend and checkers into an orchestrator.
// The returned cleanup releases backend resources.
func (a *app) assemble(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, func(), error) {
	b, err := backend.New(ctx, cfg.Backend, &cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := backend.Close(b); err != nil {
			a.logger.Warn("close backend", "error", err)
		}
	}

	var checkers []orchestrator.Checker
	if cfg.Checkers.Links.Enabled {
		checkers = append(checkers, checker.NewLinkChecker(cfg.Checkers.Links, nil))
	}
	if cfg.Checkers.Answer.Enabled {
		completer, ok := b.(backend.Completer)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("answer checker needs a backend that can complete prompts, %q cannot", cfg.Backend.Kind)
		}
		checkers = append(checkers, checker.NewAnswerChecker(completer))
	}

	o := orchestrator.New(b,
		orchestrator.WithCheckers(checkers...),
		orchestrator.WithLogger(a.logger),
	)
	a.logger.Debug("orchestrator ready", "backend", cfg.Backend.Kind, "checkers", len(checkers))
	return o, cleanup, nil
}

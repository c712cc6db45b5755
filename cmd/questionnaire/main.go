// Command questionnaire answers questions with a hosted model, strips
// citation artifacts from the answers and retries until an answer fits the
// acceptance criteria.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-questionnaire/internal/config"
	"github.com/ahrav/go-questionnaire/internal/logging"
)

// errNotAnswered makes the process exit 1 after the failure was reported.
var errNotAnswered = errors.New("question not answered")

// app holds the state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNotAnswered) {
			fmt.Fprintf(os.Stderr, "FATAL ERROR: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "questionnaire",
		Short: "Answer questionnaire questions with cleaned, length-bounded answers",
		Long: `questionnaire asks a hosted model each question, removes citation
markers and formatting artifacts from the reply, and retries with feedback
until the answer fits the character limit.

Examples:
  questionnaire ask "Does Azure Functions support Python?" --context "Microsoft Azure"
  questionnaire batch vendor.yaml -o answers.yaml`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(a.askCmd(), a.batchCmd(), a.workerCmd(), a.submitCmd())
	return root
}

// setup loads configuration and installs the logger before any subcommand
// runs.
func (a *app) setup(*cobra.Command, []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger, err := logging.Setup(cfg.Logging, a.stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

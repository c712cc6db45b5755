package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/orchestrator"
)

const rule = "================================================================================"

func (a *app) askCmd() *cobra.Command {
	var in domain.AskInput
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Question = args[0]
			return a.ask(cmd, a.cfg.Ask(in))
		},
	}
	cmd.Flags().StringVar(&in.Context, "context", "", "product or topic context for the question")
	cmd.Flags().IntVar(&in.CharLimit, "char-limit", 0, "maximum answer length in characters (default from config)")
	cmd.Flags().IntVar(&in.MaxRetries, "max-retries", 0, "total number of attempts (default from config)")
	cmd.Flags().BoolVarP(&in.Verbose, "verbose", "v", false, "print the reasoning transcript")
	return cmd
}

func (a *app) ask(cmd *cobra.Command, in domain.AskInput) error {
	o, cleanup, err := a.assemble(cmd.Context(), a.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var transcript orchestrator.Transcript
	res, err := o.RunWithRecorder(cmd.Context(), in, &transcript)
	if err != nil {
		return err
	}

	if in.Verbose {
		printTranscript(cmd.OutOrStdout(), transcript.Lines())
	}
	if !res.Success {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nERROR: %v\n", res.Err())
		return errNotAnswered
	}
	printAnswer(cmd.OutOrStdout(), res)
	return nil
}

func printTranscript(w io.Writer, lines []string) {
	fmt.Fprintln(w, "Reasoning:")
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(l, "\n", "\n  "))
	}
}

func printAnswer(w io.Writer, res domain.Result) {
	fmt.Fprintf(w, "\n%s\nFINAL ANSWER:\n%s\n%s\n%s\n", rule, rule, res.Answer, rule)
	if len(res.Links) == 0 {
		return
	}
	fmt.Fprintln(w, "\nDocumentation links:")
	for i, l := range res.Links {
		fmt.Fprintf(w, "  %d. %s\n", i+1, l.URL)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sage/pkg/models"
)

func newAskCmd(configPath *string) *cobra.Command {
	var expert string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			var id models.ExpertID
			if expert != "" {
				var ok bool
				if id, ok = models.ParseExpertID(strings.ToLower(expert)); !ok {
					return fmt.Errorf("unknown expert %q", expert)
				}
			}

			a, err := newApp(*configPath, os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var answer models.Answer
			if id != "" {
				answer = a.service.AskExpert(ctx, id, question)
			} else {
				answer = a.service.Ask(ctx, question)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(answer)
			}
			fmt.Fprintln(out, answer.Text)
			source := string(answer.Source)
			if source == "" {
				source = "none"
			}
			fmt.Fprintf(out, "\n[expert: %s, source: %s, confidence: %.2f]\n", answer.Expert, source, answer.Confidence)
			if answer.Outcome == models.OutcomeError {
				return fmt.Errorf("resolution failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&expert, "expert", "e", "", "skip classification and use this expert")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")
	return cmd
}

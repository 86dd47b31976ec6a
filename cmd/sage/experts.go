package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newExpertsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "experts",
		Short: "List configured experts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, io.Discard)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-8s %-8s %s\n", "EXPERT", "LOCAL", "LIVE", "DESCRIPTION")
			localByID := make(map[string]bool, len(a.cfg.Experts))
			live := make(map[string]bool, len(a.cfg.Experts))
			for _, e := range a.cfg.Experts {
				localByID[e.ID] = e.Local.Enabled
				live[e.ID] = e.LiveSearch.Enabled
			}
			for _, info := range a.service.Registry().Experts() {
				id := string(info.ID)
				fmt.Fprintf(out, "%-10s %-8s %-8s %s\n", id, yesNo(localByID[id]), yesNo(live[id]), info.Description)
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

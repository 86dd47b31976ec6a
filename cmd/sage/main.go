package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "sage",
		Short:         "Sage: expert question answering with layered fallbacks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "sage.yaml", "path to config file (optional)")

	root.AddCommand(
		newServeCmd(&configPath),
		newAskCmd(&configPath),
		newExpertsCmd(&configPath),
		newMCPCmd(&configPath),
		newCacheCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

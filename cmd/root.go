// Package cmd hosts the realtime command line tooling.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "realtime",
	Short: "Marketplace realtime client tooling",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

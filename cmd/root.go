package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scanportal",
	Short: "Gateway for the security scan portal",
	Long: `scanportal serves the scan portal pages behind an auth-cookie guard and
proxies API calls to the scan backend.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

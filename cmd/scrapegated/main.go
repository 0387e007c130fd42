package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.2.0"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "scrapegated",
		Short: "Compliance gate for municipal data scraping",
		Long: `scrapegated enforces per-source and global rate limits, business hours,
holiday calendars and error backoff for municipal data sources. Scraping
jobs consult it before every network request and report back afterwards.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (TOML)")

	rootCmd.AddCommand(
		createServeCommand(),
		createCheckCommand(),
		createStatusCommand(),
		createVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scrapegated version %s\n", version)
		},
	}
}

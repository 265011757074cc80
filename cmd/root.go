package cmd

import (
	"github.com/spf13/cobra"

	"github.com/surajshivkumar/ConvoLens/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "convolens",
	Short: "Ask natural-language questions about a call-center transcript archive",
	Long: `ConvoLens answers questions about recorded customer calls. Each question
is routed to one of three strategies: a generated SQL query for counts and
filters, retrieval over similar transcripts for questions about content,
or a calendar booking for scheduling requests.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}


package cmd

import (
	"github.com/spf13/cobra"

	"github.com/surajshivkumar/ConvoLens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize convolens configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to connect your call archive and generates a .convolens.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package cmd

import (
	"github.com/spf13/cobra"

	"scrolldoc/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize scrolldoc configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure scrolldoc for your document and generates a scrolldoc.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

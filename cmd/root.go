package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "scrolldoc",
	Short: "Progressive region loader for long-scroll documents",
	Long: `Scrolldoc serves an interactive long-scroll document assembled from
independently loadable content regions. Regions load progressively as
the reader scrolls, the sidebar and URL fragment track the active
region, and embedded visualization scenes are created and released with
viewport proximity.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "scrolldoc.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

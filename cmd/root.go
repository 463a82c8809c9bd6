package cmd

import (
	"github.com/spf13/cobra"

	"crc-quiz-server/config"
)

var rootCmd = &cobra.Command{
	Use:           "crcq",
	Short:         "CRC quiz server",
	Long:          "crcq serves practice exams generated from a clinical-research case spreadsheet and keeps per-user results.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(hashCmd)
}

// loadConfig reads the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(path)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lazvid",
	Short: "Timestamped transcripts for video and audio",
	Long: `lazvid turns uploaded media into a timestamped, translated transcript
and keeps it in sync with playback. Run "lazvid serve" for the HTTP API,
or use the offline commands to inspect and export transcript files.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(generateCmd)
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/lazvid/backend/internal/timeline"
)

var (
	exportFormat string
	exportOutput string
	exportCopy   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <transcript>",
	Short: "Convert a timestamped transcript to SRT or VTT",
	Long: `Convert a "[MM:SS] text" transcript file to SRT or WebVTT subtitles.
Each cue ends where the next one starts; the last cue lasts five seconds.
Use "-" to read the transcript from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(args[0])
		if err != nil {
			return err
		}
		out, err := exportTranscript(raw, exportFormat)
		if err != nil {
			return err
		}
		if out == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s contains no timestamped lines, nothing to export\n", args[0])
			return nil
		}

		if exportCopy {
			if err := clipboard.WriteAll(out); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied subtitles to clipboard")
		}
		if exportOutput == "" {
			if !exportCopy {
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(out), 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "srt", "subtitle format: srt or vtt")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "copy the result to the clipboard")
}

func exportTranscript(raw, format string) (string, error) {
	f, err := timeline.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return timeline.Parse(raw).Export(f)
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

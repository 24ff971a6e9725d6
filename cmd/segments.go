package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lazvid/backend/internal/timeline"
)

var segmentsAt float64

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD")).Bold(true)
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
)

var segmentsCmd = &cobra.Command{
	Use:   "segments <transcript>",
	Short: "List the segments of a transcript",
	Long: `List the timestamped segments of a transcript file. With --at, the
segment active at that playback position (in seconds) is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(args[0])
		if err != nil {
			return err
		}
		at := math.NaN()
		if cmd.Flags().Changed("at") {
			at = segmentsAt
		}
		renderSegments(cmd.OutOrStdout(), timeline.Parse(raw), at)
		return nil
	},
}

func init() {
	segmentsCmd.Flags().Float64Var(&segmentsAt, "at", 0, "highlight the segment active at this offset (seconds)")
}

// renderSegments writes one line per segment. NaN at highlights nothing.
func renderSegments(w io.Writer, tl *timeline.Timeline, at float64) {
	if tl.Len() == 0 {
		fmt.Fprintln(w, noteStyle.Render("no timestamped lines"))
		return
	}
	active, ok := tl.ActiveIndex(at)
	if !ok {
		active = -1
	}
	for i, seg := range tl.Segments() {
		label := timeStyle.Render("[" + seg.TimeLabel + "]")
		if i == active {
			fmt.Fprintf(w, "▶ %s %s\n", label, activeStyle.Render(seg.Text))
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", label, seg.Text)
	}

	note := fmt.Sprintf("%d segments", tl.Len())
	if !tl.Monotonic() {
		note += ", out of order"
	}
	fmt.Fprintln(w, noteStyle.Render(note))
}

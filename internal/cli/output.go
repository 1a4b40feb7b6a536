package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/score-tracker/internal/domain"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
		return
	}

	switch v := data.(type) {
	case *domain.PlayerScore:
		fmt.Fprintf(o.w, "Player: %s\n", v.PlayerName)
		fmt.Fprintf(o.w, "Score: %d\n", v.Score)
		fmt.Fprintf(o.w, "Time taken: %.2fs\n", v.TimeTaken)
	case []domain.PlayerRecord:
		o.printLeaderboard(v)
	case map[string]string:
		for k, val := range v {
			fmt.Fprintf(o.w, "%s: %s\n", k, val)
		}
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(domain.MessageResponse{Message: msg})
		return
	}
	fmt.Fprintln(o.w, msg)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printLeaderboard(entries []domain.PlayerRecord) {
	if len(entries) == 0 {
		fmt.Fprintln(o.w, "No scores yet")
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tSCORE\tTIME")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2fs\n", i+1, e.PlayerName, e.Score, e.TimeTaken)
	}
	_ = tw.Flush()
}

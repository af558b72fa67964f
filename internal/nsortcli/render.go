package nsortcli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"notesort/internal/model"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(cmd *cobra.Command) bool {
	if opts := optionsFrom(cmd); opts != nil && opts.NoColor {
		return false
	}
	return isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func outcomeText(outcome string, colorize bool) string {
	if !colorize {
		return outcome
	}
	switch outcome {
	case "moved":
		return text.FgGreen.Sprint(outcome)
	case "failed":
		return text.FgRed.Sprint(outcome)
	case "in_flight", "unconfigured":
		return text.FgYellow.Sprint(outcome)
	default:
		return outcome
	}
}

func RenderStatus(st model.Status) string {
	rows := [][]string{
		{"version", st.Version},
		{"vault", st.Root},
		{"state dir", st.StateDir},
		{"index", st.IndexBackend + " " + st.IndexPath},
		{"snapshots", strconv.Itoa(st.Snapshots)},
		{"in flight", strconv.Itoa(st.InFlight)},
		{"watching", strconv.FormatBool(st.Watching)},
		{"next task", fmt.Sprintf("TASK-%03d", st.TaskCounter)},
		{"started", time.Unix(st.StartedAt, 0).Format(time.RFC3339)},
	}
	if st.MetricsListen != "" {
		rows = append(rows, []string{"metrics", st.MetricsListen})
	}
	if len(st.Missing) > 0 {
		rows = append(rows, []string{"missing options", strings.Join(st.Missing, ", ")})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func RenderMove(r model.MoveResult, colorize bool) string {
	switch r.Outcome {
	case "moved":
		line := fmt.Sprintf("%s: %s -> %s", outcomeText(r.Outcome, colorize), r.From, r.To)
		if r.Stamped {
			line += " (stamped)"
		}
		if r.Cleared {
			line += " (cleared)"
		}
		return line
	default:
		return fmt.Sprintf("%s: %s", outcomeText(r.Outcome, colorize), r.From)
	}
}

func RenderSweep(s model.SweepResult, colorize bool) string {
	var b strings.Builder
	if len(s.Moved) > 0 {
		rows := make([][]string, 0, len(s.Moved))
		for _, m := range s.Moved {
			rows = append(rows, []string{m.From, m.To, strconv.FormatBool(m.Value)})
		}
		b.WriteString(renderTable([]string{"From", "To", "Value"}, rows, nil))
		b.WriteString("\n")
	}

	keys := make([]string, 0, len(s.Outcomes))
	for k := range s.Outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", outcomeText(k, colorize), s.Outcomes[k]))
	}
	fmt.Fprintf(&b, "scanned %d documents, moved %d", s.Scanned, len(s.Moved))
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, " "))
	}
	b.WriteString("\n")
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	return b.String()
}

func RenderHistory(moves []model.Move) string {
	rows := make([][]string, 0, len(moves))
	for _, m := range moves {
		value := ""
		if m.Value != nil {
			value = strconv.FormatBool(*m.Value)
		}
		from := m.From
		if from == "" {
			from = "-"
		}
		rows = append(rows, []string{
			time.Unix(m.At, 0).Format("2006-01-02 15:04:05"),
			m.Reason,
			from,
			m.To,
			value,
			m.Error,
		})
	}
	return renderTable([]string{"When", "Reason", "From", "To", "Value", "Error"}, rows, nil)
}

func RenderOptions(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, opts[k]})
	}
	return renderTable([]string{"Option", "Value"}, rows, nil)
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/timeline"
	"github.com/Astrrra/arcmini/internal/tui/components"
)

const dateLayout = "2006-01-02"

var listDate string

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listDate, "date", "", "day to list (YYYY-MM-DD, default today)")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print a day's timeline",
	Long:  "Print the display list for one day, newest first, as the TUI would show it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context(), cmd.OutOrStdout(), listDate)
	},
}

// ListEntry is one row of `arcmini list --json`.
type ListEntry struct {
	ID          string     `json:"id"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Kind        string     `json:"kind,omitempty"`
	Title       string     `json:"title,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

func parseDay(raw string, now time.Time) (models.DateRange, error) {
	if strings.TrimSpace(raw) == "" {
		return models.DayRange(now), nil
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), now.Location())
	if err != nil {
		return models.DateRange{}, &PreflightError{
			Message:  fmt.Sprintf("invalid --date %q", raw),
			Hint:     "Dates use the YYYY-MM-DD form",
			NextStep: "arcmini list --date " + now.Format(dateLayout),
		}
	}
	return models.DayRange(day), nil
}

func runList(ctx context.Context, out io.Writer, rawDate string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	day, err := parseDay(rawDate, now)
	if err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	items, err := rt.engine.Items(ctx, day)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	active := timeline.ResolveActive(ctx, day, now, rt.recorder, rt.engine)
	entries := timeline.BuildDisplayList(items, timeline.Activity(rt.engine.Processing(), active))

	if IsJSONOutput() {
		rows := make([]ListEntry, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, listEntry(e))
		}
		return WriteOutput(out, rows)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintf(out, "Nothing recorded on %s.\n", day.Start.Format(dateLayout))
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, tableRow(e))
	}
	return writeTable(out, listColumns, rows)
}

func listEntry(e timeline.Entry) ListEntry {
	row := ListEntry{ID: e.ID.String(), Placeholder: e.IsPlaceholder()}
	if e.Item == nil {
		return row
	}
	row.Kind = string(e.Item.Kind)
	row.Title = itemTitle(e.Item)
	if r := e.Item.DateRange; r != nil {
		start, end := r.Start, r.End
		row.Start, row.End = &start, &end
	}
	return row
}

func tableRow(e timeline.Entry) []string {
	if e.Item == nil {
		return []string{"--:--", "thinking", "…", "", shortID(e.ID.String())}
	}
	span, duration := "--:--", ""
	if r := e.Item.DateRange; r != nil {
		span = r.Start.Local().Format("15:04") + "–" + r.End.Local().Format("15:04")
		duration = components.FormatDuration(r.Duration())
	}
	return []string{span, string(e.Item.Kind), itemTitle(e.Item), duration, shortID(e.ID.String())}
}

func itemTitle(item *models.Item) string {
	switch {
	case item.IsVisit() && item.Visit != nil && item.Visit.PlaceName != "":
		return item.Visit.PlaceName
	case item.IsVisit():
		return "Unknown place"
	case item.Path != nil && item.Path.ActivityType != "":
		return item.Path.ActivityType
	default:
		return "moving"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

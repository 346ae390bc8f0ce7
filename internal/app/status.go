package app

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"sector-flow/internal/quadrant"
	"sector-flow/internal/snapshot"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)

	labelStyles = map[quadrant.Label]lipgloss.Style{
		quadrant.Leading:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		quadrant.Improving:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		quadrant.Deteriorating: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		quadrant.Weakening:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// PrintStatus renders the snapshot at path as tables. Quadrants are re-derived
// from the stored values.
func PrintStatus(w io.Writer, path string) error {
	s, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("no snapshot at %s, run update first", path)
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Sector flow as of %s vs %s", s.AsOf, s.Benchmark)))
	fmt.Fprintln(w, faintStyle.Render("generated "+s.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "SYMBOL", "NAME", "GROUP", "DATE", "CMF21", "RS MOM 20", "QUADRANT")
	for i, sym := range displayOrder(s) {
		in := s.Instruments[sym]
		label := in.Label()
		t.Row(
			strconv.Itoa(i+1),
			in.Symbol,
			in.Name,
			in.Group,
			in.Date,
			formatChange(in.CMF21, in.CMF21Change, 4),
			formatChange(in.RSMomentum20, in.RSMomentum20Change, 2),
			labelStyles[label].Render(string(label)),
		)
	}
	fmt.Fprintln(w, t.String())

	if len(s.Macro) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.Macro))
	for id := range s.Macro {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	mt := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SERIES", "INDICATOR", "DATE", "VALUE", "CHANGE", "")
	for _, id := range ids {
		r := s.Macro[id]
		change := ""
		if r.Change != nil {
			change = strconv.FormatFloat(*r.Change, 'f', 2, 64)
		}
		stale := ""
		if r.Stale {
			stale = "stale"
		}
		mt.Row(r.Series, r.Indicator, r.Date, strconv.FormatFloat(r.Value, 'f', 2, 64), change, stale)
	}
	fmt.Fprintln(w, mt.String())
	return nil
}

// displayOrder returns the ranking followed by any unranked symbols.
func displayOrder(s *snapshot.Snapshot) []string {
	seen := make(map[string]bool, len(s.Instruments))
	var out []string
	for _, sym := range s.Ranking {
		if _, ok := s.Instruments[sym]; ok && !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	var rest []string
	for sym := range s.Instruments {
		if !seen[sym] {
			rest = append(rest, sym)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func formatChange(v, change float64, places int) string {
	arrow := ""
	switch {
	case change > 0:
		arrow = " ▲"
	case change < 0:
		arrow = " ▼"
	}
	return strconv.FormatFloat(v, 'f', places, 64) + arrow
}

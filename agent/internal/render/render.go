// Package render prints a Report to a terminal using lipgloss styles.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

const (
	cardWidth    = 18
	cardsPerLine = 4
)

var severityColors = map[types.Severity]lipgloss.Color{
	types.SeverityGreen:  lipgloss.Color("#8BC34A"),
	types.SeverityYellow: lipgloss.Color("#FFC107"),
	types.SeverityRed:    lipgloss.Color("#E53935"),
	types.SeverityGray:   lipgloss.Color("#9E9E9E"),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(severityColors[types.SeverityGray])
)

// labels are the card captions, in display order.
var labels = map[types.KPI]string{
	types.KPICNE:          "CNE %",
	types.KPILeadTimeP95:  "Lead Time p95",
	types.KPIWIPAgeEP:     "WIP Age EP",
	types.KPIWIPAgePR:     "WIP Age PR",
	types.KPIThroughput:   "Throughput (7d)",
	types.KPIConversion:   "Conversion %",
	types.KPIRegistration: "Registration %",
}

var units = map[types.KPI]string{
	types.KPICNE:          "%",
	types.KPILeadTimeP95:  " d",
	types.KPIWIPAgeEP:     " d",
	types.KPIWIPAgePR:     " d",
	types.KPIConversion:   "%",
	types.KPIRegistration: "%",
}

// Report writes the human-readable form of r to w.
func Report(w io.Writer, r *types.Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("trainingpulse · %s", r.Workspace)))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(r.GeneratedAt.Format("2006-01-02 15:04 MST")))
	b.WriteString("\n")

	if r.KPIs == nil {
		b.WriteString(mutedStyle.Render("No data: load both the participations and plan datasets."))
		b.WriteString("\n")
	} else {
		b.WriteString(cards(r))
		b.WriteString("\n")
	}

	if len(r.Alerts) > 0 {
		b.WriteString(sectionStyle.Render("Alerts"))
		b.WriteString("\n")
		for _, a := range r.Alerts {
			dot := lipgloss.NewStyle().Foreground(severityColors[a.Severity]).Render("●")
			fmt.Fprintf(&b, "%s %s: %s\n", dot, titleStyle.Render(a.Title), a.Detail)
		}
	}

	if len(r.Distribution) > 0 {
		b.WriteString(sectionStyle.Render("Status distribution"))
		b.WriteString("\n")
		for _, sc := range r.Distribution {
			fmt.Fprintf(&b, "%-6s %-22s %5d\n", sc.Status, sc.Name, sc.Count)
		}
	}

	for _, col := range r.Board {
		b.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%d)", col.Name, len(col.Cards))))
		b.WriteString("\n")
		for _, c := range col.Cards {
			fmt.Fprintf(&b, "  %s · %s", c.Course, c.Participant)
			if c.Criticality != "" {
				b.WriteString(mutedStyle.Render(" [" + c.Criticality + "]"))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(sectionStyle.Render("Datasets"))
	b.WriteString("\n")
	for _, ds := range r.Datasets {
		b.WriteString(datasetLine(ds))
		b.WriteString("\n")
	}
	if d := r.Dates; d != (types.DateStats{}) {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("dates: %d unparseable, %d inverted, %d in the future",
			d.Unparseable, d.Inverted, d.Future)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func cards(r *types.Report) string {
	var rows, line []string
	for _, kpi := range types.AllKPIs {
		line = append(line, card(kpi, r.KPIs, r.Severities[kpi]))
		if len(line) == cardsPerLine {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, line...))
			line = nil
		}
	}
	if len(line) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, line...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func card(kpi types.KPI, set *types.KPISet, sev types.Severity) string {
	if sev == "" {
		sev = types.SeverityGray
	}
	color := severityColors[sev]
	style := lipgloss.NewStyle().
		Width(cardWidth).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color)
	value := lipgloss.NewStyle().Bold(true).Foreground(color).Render(set.Text(kpi) + units[kpi])
	return style.Render(labels[kpi] + "\n" + value)
}

func datasetLine(ds types.DatasetSummary) string {
	src := ds.Source
	if src == "" {
		src = "-"
	}
	line := fmt.Sprintf("%-15s %-30s %5d rows", ds.Kind, src, ds.Rows)
	if s := ds.Stats; s.DroppedEmpty+s.ShortLines+s.LongLines > 0 {
		line += mutedStyle.Render(fmt.Sprintf("  (%d dropped, %d short, %d long)",
			s.DroppedEmpty, s.ShortLines, s.LongLines))
	}
	if ds.Error != "" {
		line += "  " + lipgloss.NewStyle().Foreground(severityColors[types.SeverityRed]).Render("error: "+ds.Error)
	}
	return line
}

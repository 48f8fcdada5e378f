package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pocketledger/tally/internal/model"
)

// Terminal styles for the progress and summary views.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	levelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F5A623"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	fillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	trendUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	trendDownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))
)

// RenderProgress renders the review progress and XP state for the terminal.
func RenderProgress(fraction float64, stats model.ProgressStats, game model.GamificationState) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Reconciliation Progress"))
	b.WriteString("\n\n")

	b.WriteString(renderBar(fraction, 30))
	b.WriteString(fmt.Sprintf(" %.0f%%\n", fraction*100))

	b.WriteString(subtleStyle.Render(fmt.Sprintf(
		"%d reviewed / %d total · %d low confidence · %d possible duplicates",
		stats.Reviewed, stats.Total, stats.LowConfidence, stats.Duplicates)))
	b.WriteString("\n\n")

	b.WriteString(levelStyle.Render(fmt.Sprintf("Level %d", game.Level)))
	b.WriteString(subtleStyle.Render(fmt.Sprintf(" · %d XP\n", game.XP)))
	b.WriteString(renderBar(game.ProgressToNextLevel, 30))
	b.WriteString(subtleStyle.Render(" to next level"))
	b.WriteString("\n")

	return b.String()
}

// RenderTrend formats a category's period-over-period change.
func RenderTrend(s CategorySummary) string {
	if !s.HasTrend {
		return subtleStyle.Render("—")
	}
	if s.TrendPct > 0 {
		return trendUpStyle.Render(fmt.Sprintf("+%.1f%%", s.TrendPct))
	}
	return trendDownStyle.Render(fmt.Sprintf("%.1f%%", s.TrendPct))
}

func renderBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return fillStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled))
}

package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

// renderActivity renders the Activity tab: a bar chart of how many plans
// changed status on each poll.
func (b *PlanBoard) renderActivity(width, height int) string {
	if len(b.activity) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorDim).
				Render("No polls completed yet"))
	}

	chartWidth := width - 4
	chartHeight := height - 4
	if chartWidth < 20 {
		chartWidth = 20
	}
	if chartHeight < 4 {
		chartHeight = 4
	}

	maxBars := chartWidth / 2
	points := b.activity
	if len(points) > maxBars {
		points = points[len(points)-maxBars:]
	}

	barStyle := lipgloss.NewStyle().Foreground(ColorAccent).Background(ColorAccent)
	idleStyle := lipgloss.NewStyle().Foreground(ColorBorder).Background(ColorBorder)

	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, point := range points {
		style := barStyle
		value := float64(point.Changes)
		if point.Changes == 0 {
			// Keep idle polls visible as a baseline.
			style = idleStyle
			value = 0.2
		}
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: "changes", Value: value, Style: style},
			},
		})
	}
	bc.Draw()

	total := 0
	for _, point := range b.activity {
		total += point.Changes
	}
	latest := b.activity[len(b.activity)-1]

	header := lipgloss.NewStyle().Bold(true).Foreground(ColorText).
		Render("Status changes per poll")
	stats := lipgloss.NewStyle().Foreground(ColorDim).
		Render(fmt.Sprintf("polls: %d | changes seen: %d | last poll: %s (%d changed)",
			len(b.activity), total, latest.At.Format("15:04:05"), latest.Changes))

	content := strings.Join([]string{header, stats, "", bc.View()}, "\n")
	return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 2).Render(content)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harvestpath/harvestpath/pkg/application"
	"github.com/harvestpath/harvestpath/pkg/domain/catalog"
	"github.com/harvestpath/harvestpath/pkg/domain/journey"
)

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#3A7D44")).
	PaddingLeft(1).
	PaddingRight(1)

var (
	stepVerified = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stepCurrent  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	stepLocked   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	feedbackText = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("109"))
)

func statusStyle(s journey.Status) lipgloss.Style {
	switch s {
	case journey.StatusCompleted:
		return stepVerified
	case journey.StatusFailed:
		return statusErr
	default:
		return stepCurrent
	}
}

// renderSteps draws the workflow of a journey with its lock states.
func renderSteps(o *application.Overview) string {
	var b strings.Builder
	for _, v := range o.Steps {
		var step catalog.WorkflowStep
		if v.Index < len(o.Crop.Workflow) {
			step = o.Crop.Workflow[v.Index]
		}
		glyph := catalog.IconCapabilities(step.Icon).Glyph

		marker := "  "
		style := stepLocked
		switch {
		case v.Lock == journey.StepVerified:
			marker, style = "✓ ", stepVerified
		case v.IsCurrent:
			marker, style = "▶ ", stepCurrent
		case v.Lock == journey.StepUnlocked:
			style = stepCurrent
		}

		line := fmt.Sprintf("%s%d. %s %s  (+%d pts, +%d eco)", marker, v.Index, glyph, step.Title, step.Points, step.EcoPoints)
		if v.Lock == journey.StepLocked {
			line += "  [locked]"
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
		if v.AIFeedback != "" {
			b.WriteString("     ")
			b.WriteString(feedbackText.Render(v.AIFeedback))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderOverview draws the full journey card.
func renderOverview(o *application.Overview) string {
	j := o.Journey
	header := headerStyle.Render(fmt.Sprintf("%s  %s", j.CropName, j.ID))
	status := statusStyle(j.Status).Render(j.Status.DisplayName())
	summary := fmt.Sprintf("Status: %s   Health: %d   Run: %d\nProgress: %d%% verified (step %d of %d)\nSession: %d XP, %d eco XP   Balance: %d pts, %d eco",
		status, j.HealthScore, j.Run,
		o.CompletionPercent, j.CurrentStepIndex+1, len(j.Steps),
		o.Session.XP, o.Session.EcoXP, o.Balance.Points, o.Balance.EcoPoints)

	return baseStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		summary,
		"",
		strings.TrimRight(renderSteps(o), "\n"),
	)) + "\n"
}

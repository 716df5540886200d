package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/triad/internal/workflow"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple (violet-400)
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red (red-400)
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray (brighter for readability)
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray (gray-500)
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Phase colors - one per workflow phase so status output reads at a glance
	PhasePlanningColor       = lipgloss.Color("#60A5FA") // Blue
	PhaseImplementationColor = lipgloss.Color("#F59E0B") // Amber
	PhaseReviewColor         = lipgloss.Color("#A78BFA") // Purple
	PhaseApprovedColor       = lipgloss.Color("#10B981") // Green
	PhaseRejectedColor       = lipgloss.Color("#F87171") // Red (red-400)

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Status panel
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2)

	PanelLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	PhaseBadge = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	// Task queue table
	TableTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(BorderColor)

	TableCell = lipgloss.NewStyle().
			Foreground(TextColor)

	TableCellMuted = lipgloss.NewStyle().
			Foreground(MutedColor)

	// Setup wizard
	WizardTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	WizardStepDone = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	WizardStepPending = lipgloss.NewStyle().
				Foreground(MutedColor)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success message
	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Warning message
	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)
)

// PhaseColor returns the color for a workflow phase.
func PhaseColor(phase workflow.Phase) lipgloss.Color {
	switch phase {
	case workflow.PhasePlanning:
		return PhasePlanningColor
	case workflow.PhaseImplementation:
		return PhaseImplementationColor
	case workflow.PhaseReview:
		return PhaseReviewColor
	case workflow.PhaseApproved:
		return PhaseApprovedColor
	case workflow.PhaseRejected:
		return PhaseRejectedColor
	default:
		return MutedColor
	}
}

// PhaseIcon returns an icon for a workflow phase.
func PhaseIcon(phase workflow.Phase) string {
	switch phase {
	case workflow.PhasePlanning:
		return "◆"
	case workflow.PhaseImplementation:
		return "●"
	case workflow.PhaseReview:
		return "◎"
	case workflow.PhaseApproved:
		return "✓"
	case workflow.PhaseRejected:
		return "✗"
	default:
		return "○"
	}
}

// RoleColor returns the color associated with an agent role.
func RoleColor(role workflow.AgentRole) lipgloss.Color {
	switch role {
	case workflow.RoleArchitect:
		return BlueColor
	case workflow.RoleImplementer:
		return WarningColor
	case workflow.RoleAuditor:
		return PrimaryColor
	default:
		return MutedColor
	}
}

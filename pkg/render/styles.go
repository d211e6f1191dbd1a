package render

import "github.com/charmbracelet/lipgloss"

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	InfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("140"))
	HelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Card styles
var (
	CardStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("255")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	RedCardStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("255")).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)

	HiddenCardStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("17")).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)
)

// Seat styles
var (
	SeatStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	TurnSeatStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("46")).
			Padding(0, 1)

	ViewerSeatStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	OutSeatStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	PotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("46")).
			Padding(0, 2).
			Bold(true)
)

package tui

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

type Styles struct {
	flavor catppuccin.Flavor
}

func NewStyles(themeName string) *Styles {
	flavor := flavorFromName(themeName)
	return &Styles{flavor: flavor}
}

func flavorFromName(name string) catppuccin.Flavor {
	switch name {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	case "mocha":
		return catppuccin.Mocha
	default:
		return catppuccin.Mocha
	}
}

func (s *Styles) color(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

func (s *Styles) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Mauve()))
}

func (s *Styles) SubtitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Subtext0()))
}

func (s *Styles) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Overlay0()))
}

func (s *Styles) InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Text()))
}

func (s *Styles) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Teal()))
}

func (s *Styles) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Red())).
		Bold(true)
}

func (s *Styles) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Green()))
}

func (s *Styles) PanelHeaderStyle(focused bool) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	if focused {
		return st.
			Foreground(s.color(s.flavor.Base())).
			Background(s.color(s.flavor.Mauve()))
	}
	return st.
		Foreground(s.color(s.flavor.Subtext1())).
		Background(s.color(s.flavor.Surface0()))
}

func (s *Styles) SeparatorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Surface1()))
}

// NodeStyle colours a tree entry by type and state.
func (s *Styles) NodeStyle(nodeType string, focused, urgent bool) lipgloss.Style {
	st := lipgloss.NewStyle()
	switch {
	case urgent:
		return st.Foreground(s.color(s.flavor.Red())).Bold(true)
	case focused:
		return st.Foreground(s.color(s.flavor.Mauve())).Bold(true)
	}
	switch nodeType {
	case "output":
		return st.Foreground(s.color(s.flavor.Blue())).Bold(true)
	case "workspace":
		return st.Foreground(s.color(s.flavor.Teal()))
	case "column":
		return st.Foreground(s.color(s.flavor.Overlay1()))
	default:
		return st.Foreground(s.color(s.flavor.Text()))
	}
}

// EventStyle colours an event line by type.
func (s *Styles) EventStyle(eventType string) lipgloss.Style {
	st := lipgloss.NewStyle()
	switch eventType {
	case "window":
		return st.Foreground(s.color(s.flavor.Green()))
	case "workspace":
		return st.Foreground(s.color(s.flavor.Teal()))
	case "output":
		return st.Foreground(s.color(s.flavor.Blue()))
	case "transaction":
		return st.Foreground(s.color(s.flavor.Yellow()))
	case "binding":
		return st.Foreground(s.color(s.flavor.Peach()))
	default:
		return st.Foreground(s.color(s.flavor.Text()))
	}
}

func (s *Styles) TimestampStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.color(s.flavor.Overlay0()))
}

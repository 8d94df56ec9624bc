package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the dashboard. Normal and Exceeded color the safety status.
type Theme struct {
	Name     string
	Title    lipgloss.Color
	Value    lipgloss.Color
	Border   lipgloss.Color
	Normal   lipgloss.Color
	Exceeded lipgloss.Color
	Muted    lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:     "cyberpunk",
		Title:    lipgloss.Color("#ff00ff"),
		Value:    lipgloss.Color("#00ffff"),
		Border:   lipgloss.Color("#444466"),
		Normal:   lipgloss.Color("#00ff00"),
		Exceeded: lipgloss.Color("#ff0000"),
		Muted:    lipgloss.Color("#666666"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Title:    lipgloss.Color("#00ff00"),
		Value:    lipgloss.Color("#88ff88"),
		Border:   lipgloss.Color("#005500"),
		Normal:   lipgloss.Color("#88ff88"),
		Exceeded: lipgloss.Color("#ffff00"),
		Muted:    lipgloss.Color("#005500"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Title:    lipgloss.Color("#ffffff"),
		Value:    lipgloss.Color("#0088ff"),
		Border:   lipgloss.Color("#888888"),
		Normal:   lipgloss.Color("#00ff00"),
		Exceeded: lipgloss.Color("#ff0000"),
		Muted:    lipgloss.Color("#888888"),
	}

	ThemeOcean = Theme{
		Name:     "ocean",
		Title:    lipgloss.Color("#0077be"),
		Value:    lipgloss.Color("#ffd700"),
		Border:   lipgloss.Color("#4488aa"),
		Normal:   lipgloss.Color("#00ff88"),
		Exceeded: lipgloss.Color("#ff4444"),
		Muted:    lipgloss.Color("#4488aa"),
	}

	ThemeSunset = Theme{
		Name:     "sunset",
		Title:    lipgloss.Color("#ff6b6b"),
		Value:    lipgloss.Color("#feca57"),
		Border:   lipgloss.Color("#8b6b8c"),
		Normal:   lipgloss.Color("#5fd068"),
		Exceeded: lipgloss.Color("#ff4757"),
		Muted:    lipgloss.Color("#8b6b8c"),
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns the named theme, or the first one if name is unknown.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func themeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"macclient/internal/data/embedded"
)

// ThemeFile is the YAML layout of a theme.
type ThemeFile struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Styles      map[string]StyleConfig `yaml:"styles"`
}

// StyleConfig describes the styling of one semantic type.
type StyleConfig struct {
	Foreground string `yaml:"foreground,omitempty"`
	Background string `yaml:"background,omitempty"`
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Underline  bool   `yaml:"underline,omitempty"`
}

// Theme maps semantic types to lipgloss styles.
type Theme struct {
	Name   string
	styles map[string]lipgloss.Style
	plain  lipgloss.Style
}

// lipglossTextStyle adapts lipgloss.Style to TextStyle.
type lipglossTextStyle struct {
	style lipgloss.Style
}

func (s lipglossTextStyle) Render(text string) string {
	return s.style.Render(text)
}

// ThemeNames lists the embedded themes.
func ThemeNames() []string {
	names := make([]string, 0, len(embedded.Themes))
	for name := range embedded.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTheme builds an embedded theme whose colours are rendered for w.
func LoadTheme(name string, w io.Writer) (*Theme, error) {
	data, ok := embedded.Themes[name]
	if !ok {
		return nil, fmt.Errorf("unknown theme %q (available: %v)", name, ThemeNames())
	}
	return ParseTheme(data, lipgloss.NewRenderer(w))
}

// ParseTheme parses YAML theme data into a Theme.
func ParseTheme(data []byte, renderer *lipgloss.Renderer) (*Theme, error) {
	var file ThemeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}

	theme := &Theme{
		Name:   file.Name,
		styles: make(map[string]lipgloss.Style, len(file.Styles)),
		plain:  renderer.NewStyle().TabWidth(lipgloss.NoTabConversion),
	}
	for semantic, cfg := range file.Styles {
		theme.styles[semantic] = createStyle(renderer, cfg)
	}
	return theme, nil
}

func createStyle(renderer *lipgloss.Renderer, cfg StyleConfig) lipgloss.Style {
	style := renderer.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if cfg.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cfg.Foreground))
	}
	if cfg.Background != "" {
		style = style.Background(lipgloss.Color(cfg.Background))
	}
	if cfg.Bold {
		style = style.Bold(true)
	}
	if cfg.Italic {
		style = style.Italic(true)
	}
	if cfg.Underline {
		style = style.Underline(true)
	}
	return style
}

// GetStyle implements StyleProvider. Unknown semantics render unstyled.
func (t *Theme) GetStyle(semantic string) TextStyle {
	if style, ok := t.styles[semantic]; ok {
		return lipglossTextStyle{style: style}
	}
	return lipglossTextStyle{style: t.plain}
}

// IsAvailable implements StyleProvider.
func (t *Theme) IsAvailable() bool {
	return t != nil
}

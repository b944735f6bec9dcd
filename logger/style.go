package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

//
// ---------- Colors ----------

const (
	colorTeal   = "#3ddbd9"
	colorBlue   = "#4589ff"
	colorOrange = "#ff832b"
	colorRed    = "#da1e28"
	colorGray   = "#8d8d8d"
	colorLight  = "#f4f4f4"
)

//
// ---------- Console Formatter ----------

// consoleWriter builds a zerolog.ConsoleWriter with lipgloss styling.
func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	tsStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	eqStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))
	msgStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorLight))

	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "01-02 15:04:05",

		FormatLevel: func(i any) string {
			lvl := strings.ToLower(fmt.Sprint(i))
			var color string
			switch lvl {
			case "debug":
				color = colorTeal
			case "info":
				color = colorBlue
			case "warn":
				color = colorOrange
			case "error", "fatal":
				color = colorRed
			default:
				color = colorGray
			}
			if len(lvl) > 3 {
				lvl = lvl[:3]
			}
			return lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Background(lipgloss.Color(color)).
				Padding(0, 1).
				Render(strings.ToUpper(lvl))
		},

		FormatTimestamp: func(i any) string {
			return tsStyle.Render(fmt.Sprintf("[%s]", i))
		},

		FormatFieldName: func(i any) string {
			return keyStyle.Render(fmt.Sprint(i)) + eqStyle.Render("=")
		},

		FormatMessage: func(i any) string {
			return msgStyle.Render(fmt.Sprint(i))
		},
	}
}

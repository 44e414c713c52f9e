package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"catalogscan/internal/preflight"
)

const readinessLabelWidth = 20

// readinessLines renders preflight results as "  Name:   [OK] detail" lines
// under a heading. Colors are applied only for terminals.
func readinessLines(results []preflight.Result, colorize bool) []string {
	heading := "== Readiness =="
	lines := []string{paint(heading, text.FgBlue, colorize), paint(strings.Repeat("-", len(heading)), text.FgBlue, colorize)}
	for _, r := range results {
		verdict, color := "[OK]", text.FgGreen
		if !r.Passed {
			verdict, color = "[ERROR]", text.FgRed
		}
		if r.Detail != "" {
			verdict += " " + r.Detail
		}
		line := fmt.Sprintf("  %-*s %s", readinessLabelWidth, r.Name+":", verdict)
		lines = append(lines, paint(line, color, colorize))
	}
	return lines
}

func paint(s string, color text.Color, colorize bool) string {
	if !colorize {
		return s
	}
	return color.Sprint(s)
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/zulandar/parsinator/internal/models"
)

var (
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen)
	dimColor  = color.New(color.Faint)
)

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		warnColor.Fprintf(w, "warning: %s\n", msg)
	}
}

func printError(w io.Writer, err error) {
	errColor.Fprintf(w, "error: %v\n", err)
}

// formatDeps renders a dependency list as "1, 2" or "-" when empty.
func formatDeps(deps []int) string {
	if len(deps) == 0 {
		return "-"
	}
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return strings.Join(parts, ", ")
}

// formatPriority pads a priority to the width of the longest one.
func formatPriority(p models.Priority) string {
	return fmt.Sprintf("%-6s", p)
}

// Package ui styles terminal output of the CLI.
package ui

import (
	"os"
	"strings"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Enabled turns styling off when NO_COLOR is set
var Enabled = os.Getenv("NO_COLOR") == ""

func style(s string, codes ...string) string {
	if !Enabled {
		return s
	}
	return strings.Join(codes, "") + s + ColorReset
}

func Bold(s string) string    { return style(s, ColorBold) }
func Dim(s string) string     { return style(s, ColorDim) }
func Accent(s string) string  { return style(s, ColorCyan) }
func Success(s string) string { return style(s, ColorGreen) }
func Info(s string) string    { return style(s, ColorDim, ColorYellow) }
func Warn(s string) string    { return style(s, ColorYellow) }
func Error(s string) string   { return style(s, ColorRed) }

// Title styles a section title
func Title(s string) string { return style(s, ColorBold, ColorWhite) }

// Heading styles the command name header
func Heading(s string) string { return style(s, ColorBold, ColorCyan) }

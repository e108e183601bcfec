// Package ui holds the terminal palette used by the vyra CLI.
//
// [Palette] wraps a small set of lipgloss styles for titles, success and error
// lines, warnings and muted help text. When output is not a terminal lipgloss
// drops the escape codes, so the same strings are safe to pipe.
package ui

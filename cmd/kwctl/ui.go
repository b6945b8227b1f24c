package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// UI writes command results either as colored text or as JSON.
type UI struct {
	out      io.Writer
	noColor  bool
	jsonMode bool
}

func NewUI(out io.Writer, jsonMode, noColor bool) *UI {
	return &UI{out: out, noColor: noColor, jsonMode: jsonMode}
}

func (ui *UI) print(attr color.Attribute, prefix, format string, args ...any) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf("%s %s\n", prefix, fmt.Sprintf(format, args...))
	if ui.noColor {
		fmt.Fprint(ui.out, msg)
		return
	}
	color.New(attr).Fprint(ui.out, msg)
}

func (ui *UI) Success(format string, args ...any) { ui.print(color.FgGreen, "✓", format, args...) }
func (ui *UI) Warning(format string, args ...any) { ui.print(color.FgYellow, "⚠", format, args...) }
func (ui *UI) Info(format string, args ...any)    { ui.print(color.FgCyan, "ℹ", format, args...) }
func (ui *UI) Step(format string, args ...any)    { ui.print(color.FgBlue, "→", format, args...) }

// Section prints a bold title.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	line := fmt.Sprintf("━━━ %s ━━━\n", strings.ToUpper(title))
	if ui.noColor {
		fmt.Fprint(ui.out, line)
		return
	}
	color.New(color.FgMagenta, color.Bold).Fprint(ui.out, line)
}

// JSON writes v when --json is set and reports whether it did.
func (ui *UI) JSON(v any) (bool, error) {
	if !ui.jsonMode {
		return false, nil
	}
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the circuitry ASCII art banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`      _                _ _              `, "#34d399"},
		{`  ___(_)_ __ ___ _   _(_) |_ _ __ _   _ `, "#2dd4bf"},
		{` / __| | '__/ __| | | | | __| '__| | | |`, "#22d3ee"},
		{`| (__| | | | (__| |_| | | |_| |  | |_| |`, "#38bdf8"},
		{` \___|_|_|  \___|\__,_|_|\__|_|   \__, |`, "#60a5fa"},
		{`                                  |___/ `, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

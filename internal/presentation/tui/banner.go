package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the patchbay banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{"                _       _     _                 ", "#22d3ee"},
		{"  _ __   __ _ | |_ ___| |__ | |__   __ _ _   _ ", "#38bdf8"},
		{" | '_ \\ / _` || __/ __| '_ \\| '_ \\ / _` | | | |", "#60a5fa"},
		{" | |_) | (_| || || (__| | | | |_) | (_| | |_| |", "#818cf8"},
		{" | .__/ \\__,_| \\__\\___|_| |_|_.__/ \\__,_|\\__, |", "#a78bfa"},
		{" |_|                                     |___/ ", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" v"+version).Faint())
	fmt.Fprintln(w)
}

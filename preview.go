package moinmoin

import (
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const previewWidth = 60

// preview shortens rendered markup for log output.
func preview(text string, limit int) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	if ansi.PrintableRuneWidth(text) <= limit {
		return text
	}
	if limit <= 0 {
		return ""
	}
	if limit == 1 {
		return "…"
	}
	return truncate.StringWithTail(text, uint(limit), "…")
}

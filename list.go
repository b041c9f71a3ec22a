package moinmoin

import "strings"

// listPrefix renders the indentation and marker of a list item. Level 0
// has no prefix.
func listPrefix(level int, kind ListKind) string {
	if level <= 0 {
		return ""
	}
	marker := " "
	switch kind {
	case ListOrdered:
		marker = "1. "
	case ListUnordered:
		marker = "* "
	}
	return strings.Repeat(" ", level) + marker
}

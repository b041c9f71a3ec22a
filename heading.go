package moinmoin

import "github.com/escapewindow/ep-moinmoin-export/changeset"

// lineState is carried from one line to the next.
type lineState struct {
	insideCode bool
}

// lineFrame is the whole-line decoration of one line.
type lineFrame struct {
	class      headingClass
	openFence  bool // write "{{{\n" before the line
	closeFence bool // terminate the previous line's code block first
	next       lineState
}

// headingOf classifies a line by the attributes of its first character.
// Heading values other than h1..h6 and code are ignored.
func (x attribIndex) headingOf(ops []changeset.Op) headingClass {
	if changeset.Length(ops) == 0 {
		return headingNone
	}
	run, ok := changeset.NewRunIterator(ops, 0, 1).Next()
	if !ok {
		return headingNone
	}
	for _, num := range run.Attribs {
		if class, ok := x.headings[num]; ok {
			return class
		}
	}
	return headingNone
}

func frameLine(class headingClass, prev lineState) lineFrame {
	code := class == headingCode
	return lineFrame{
		class:      class,
		openFence:  code && !prev.insideCode,
		closeFence: !code && prev.insideCode,
		next:       lineState{insideCode: code},
	}
}

// stripsMarker reports whether the first character of the line's content
// is an editor marker to drop.
func (f lineFrame) stripsMarker(cfg convertConfig) bool {
	switch {
	case f.class == headingCode:
		return cfg.codeMarker
	case f.class.level() > 0:
		return cfg.headingMarker
	default:
		return false
	}
}

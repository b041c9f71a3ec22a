package moinmoin

import (
	"regexp"
	"strconv"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

// ListKind is the kind of list a line belongs to.
type ListKind uint8

const (
	ListNone ListKind = iota
	ListOrdered
	ListUnordered
	ListOther
)

func (k ListKind) String() string {
	switch k {
	case ListOrdered:
		return "ordered"
	case ListUnordered:
		return "unordered"
	case ListOther:
		return "other"
	default:
		return "none"
	}
}

// Line is one line of a document with its list marker removed.
type Line struct {
	Text      []uint16 // UTF-16 code units, no newline
	Ops       []changeset.Op
	ListLevel int
	ListKind  ListKind
}

var listValuePattern = regexp.MustCompile(`^([a-z]+)([1-8])$`)

// splitLines cuts a document into lines. A line whose first character
// carries a "list" attribute starts with a structural marker character;
// it is dropped and its value ("bullet2", "number1", ...) sets the list
// kind and depth.
func splitLines(text []uint16, ops []changeset.Op, idx attribIndex) []Line {
	body := text
	if n := len(body); n > 0 && body[n-1] == '\n' {
		body = body[:n-1]
	}
	opLines := changeset.SplitLines(ops, text)
	lines := make([]Line, 0, len(opLines))
	start := 0
	for i := 0; ; i++ {
		end := indexUnit(body, start, '\n')
		if end < 0 {
			end = len(body)
		}
		line := Line{Text: body[start:end]}
		if i < len(opLines) {
			line.Ops = opLines[i]
		}
		lines = append(lines, analyzeLine(line, idx))
		if end == len(body) {
			return lines
		}
		start = end + 1
	}
}

func analyzeLine(line Line, idx attribIndex) Line {
	total := changeset.Length(line.Ops)
	if total == 0 || len(line.Text) == 0 {
		return line
	}
	first, ok := changeset.NewRunIterator(line.Ops, 0, 1).Next()
	if !ok {
		return line
	}
	value, ok := idx.value(first.Attribs, "list")
	if !ok {
		return line
	}
	if m := listValuePattern.FindStringSubmatch(value); m != nil {
		line.ListLevel, _ = strconv.Atoi(m[2])
		line.ListKind = listKind(m[1])
	}
	line.Text = line.Text[1:]
	line.Ops = changeset.Subattribution(line.Ops, 1, total)
	return line
}

func listKind(name string) ListKind {
	switch name {
	case "number":
		return ListOrdered
	case "bullet":
		return ListUnordered
	default:
		return ListOther
	}
}

func indexUnit(units []uint16, from int, u uint16) int {
	for i := from; i < len(units); i++ {
		if units[i] == u {
			return i
		}
	}
	return -1
}

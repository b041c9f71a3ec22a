package moinmoin

import (
	"strconv"
	"strings"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

// Banner opens every exported document.
const Banner = "# Exported from Etherpad to MoinMoin ( https://github.com/smilix/ep_moinmoin_export ).\n" +
	"# tip: Use <<BR>> or an extra blank line for a new line.\n"

// tagPair encloses a construct in the output.
type tagPair struct {
	Start, End string
}

// property is an inline formatting attribute. The declaration order is
// the nesting order: bold is always outermost.
type property uint8

const (
	propBold property = iota
	propItalic
	propUnderline
	propStrikethrough
	numProps
)

var propNames = [numProps]string{"bold", "italic", "underline", "strikethrough"}

var inlineTags = [numProps]tagPair{
	propBold:          {"'''", "'''"},
	propItalic:        {"''", "''"},
	propUnderline:     {"__", "__"},
	propStrikethrough: {"--(", ")--"},
}

var headingTags = func() [6]tagPair {
	var tags [6]tagPair
	for i := range tags {
		marks := strings.Repeat("=", i+1)
		tags[i] = tagPair{Start: marks + " ", End: " " + marks}
	}
	return tags
}()

var codeFence = tagPair{Start: "{{{\n", End: "\n}}}"}

// headingClass is the whole-line class read from a line's first character.
// Values 1 to 6 are heading levels.
type headingClass uint8

const (
	headingNone headingClass = 0
	headingCode headingClass = 7
)

func (h headingClass) level() int {
	if h >= 1 && h <= 6 {
		return int(h)
	}
	return 0
}

func (h headingClass) String() string {
	switch {
	case h == headingCode:
		return "code"
	case h.level() > 0:
		return "h" + strconv.Itoa(h.level())
	default:
		return "none"
	}
}

// attribIndex holds the pool numbers the converter reacts to, resolved once
// per document. Numbers missing from it are ignored.
type attribIndex struct {
	pool     *changeset.Pool
	props    map[int]property
	headings map[int]headingClass
}

func newAttribIndex(pool *changeset.Pool) attribIndex {
	idx := attribIndex{
		pool:     pool,
		props:    make(map[int]property, numProps),
		headings: make(map[int]headingClass, 7),
	}
	for p := range numProps {
		if num, ok := pool.Lookup(propNames[p], "true"); ok {
			idx.props[num] = p
		}
	}
	for level := 1; level <= 6; level++ {
		if num, ok := pool.Lookup("heading", "h"+strconv.Itoa(level)); ok {
			idx.headings[num] = headingClass(level)
		}
	}
	if num, ok := pool.Lookup("heading", "code"); ok {
		idx.headings[num] = headingCode
	}
	return idx
}

// value returns the value of the named attribute among nums.
func (x attribIndex) value(nums []int, name string) (string, bool) {
	for _, num := range nums {
		if a, ok := x.pool.Attrib(num); ok && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

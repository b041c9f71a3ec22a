package changeset

import (
	"fmt"
	"unicode/utf16"
)

// Run is a maximal stretch of units sharing one attribute set.
type Run struct {
	Attribs []int
	Chars   int
	// Lines is non-zero when the run ends with a newline.
	Lines int
}

// RunIterator yields the runs of an attribution clipped to a sub-range.
// It is single pass: once exhausted it stays exhausted.
type RunIterator struct {
	ops   []Op
	idx   int
	pos   int // offset of ops[idx]
	start int
	end   int
}

// NewRunIterator iterates ops over [start, start+length). A range outside
// the attribution is a programming error and panics with an error wrapping
// ErrMalformedAttribution.
func NewRunIterator(ops []Op, start, length int) *RunIterator {
	total := Length(ops)
	if start < 0 || length < 0 || start+length > total {
		panic(fmt.Errorf("%w: range [%d,%d) outside %d units", ErrMalformedAttribution, start, start+length, total))
	}
	return &RunIterator{ops: ops, start: start, end: start + length}
}

// Next returns the next run, or false when the range is exhausted.
func (it *RunIterator) Next() (Run, bool) {
	for it.idx < len(it.ops) && it.start < it.end {
		op := it.ops[it.idx]
		opEnd := it.pos + op.Chars
		if opEnd <= it.start {
			it.pos = opEnd
			it.idx++
			continue
		}
		hi := min(opEnd, it.end)
		run := Run{Attribs: op.Attribs, Chars: hi - it.start}
		if hi == opEnd {
			run.Lines = op.Lines
			it.pos = opEnd
			it.idx++
		}
		it.start = hi
		return run, true
	}
	return Run{}, false
}

// Subattribution returns the ops covering [start, end) as insert ops.
func Subattribution(ops []Op, start, end int) []Op {
	it := NewRunIterator(ops, start, end-start)
	var out []Op
	for {
		run, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, Op{Opcode: '+', Chars: run.Chars, Lines: run.Lines, Attribs: run.Attribs})
	}
}

// SplitLines cuts a document attribution into one op list per line of
// text. Each list ends with the op holding that line's newline; a final
// line without a newline gets whatever ops remain.
func SplitLines(ops []Op, text []uint16) [][]Op {
	var (
		lines [][]Op
		cur   []Op
		pos   int
	)
	for _, op := range ops {
		remaining := op.Chars
		for remaining > 0 {
			nl := indexNewline(text, pos, pos+remaining)
			if nl < 0 {
				cur = append(cur, Op{Opcode: op.Opcode, Chars: remaining, Attribs: op.Attribs})
				pos += remaining
				break
			}
			take := nl - pos + 1
			cur = append(cur, Op{Opcode: op.Opcode, Chars: take, Lines: 1, Attribs: op.Attribs})
			lines = append(lines, cur)
			cur = nil
			pos += take
			remaining -= take
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func indexNewline(text []uint16, from, to int) int {
	to = min(to, len(text))
	for i := from; i < to; i++ {
		if text[i] == '\n' {
			return i
		}
	}
	return -1
}

// UTF16 converts s to the code units attributions are measured in.
func UTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// String converts code units back to a string.
func String(units []uint16) string {
	return string(utf16.Decode(units))
}

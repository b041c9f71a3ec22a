// Package changeset decodes Etherpad attributed text.
//
// An attributed text (AText) is a string plus an attribution string that
// describes which pool attributes apply to consecutive ranges of the text:
//
//	*0*3|1+5*1+2
//
// reads as "5 units carrying attributes 0 and 3, the last of them a
// newline, then 2 units carrying attribute 1". All numbers are base 36 and
// all lengths count UTF-16 code units, as Etherpad measures strings in
// JavaScript.
//
// The package never expands an attribution into per-character arrays: ops
// are clipped lazily by RunIterator.
package changeset

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrMalformedAttribution reports an attribution string that cannot be
	// parsed or a request to read outside of it.
	ErrMalformedAttribution = errors.New("malformed attribution")
	// ErrMalformedChangeset reports a changeset that cannot be applied.
	ErrMalformedChangeset = errors.New("malformed changeset")
)

// AText is an attributed text as Etherpad stores it.
type AText struct {
	Text    string `json:"text" yaml:"text"`
	Attribs string `json:"attribs" yaml:"attribs"`
}

// Op is one operation of an attribution or changeset.
type Op struct {
	Opcode  byte // '+', '-' or '='
	Chars   int
	Lines   int
	Attribs []int
}

// ParseAttribution parses the op sequence of an attribution string (or the
// op section of a changeset).
func ParseAttribution(s string) ([]Op, error) {
	var ops []Op
	i := 0
	for i < len(s) {
		var op Op
		for i < len(s) && s[i] == '*' {
			n, next, err := parseBase36(s, i+1)
			if err != nil {
				return nil, err
			}
			op.Attribs = append(op.Attribs, n)
			i = next
		}
		if i < len(s) && s[i] == '|' {
			n, next, err := parseBase36(s, i+1)
			if err != nil {
				return nil, err
			}
			op.Lines = n
			i = next
		}
		if i >= len(s) {
			return nil, fmt.Errorf("%w: %q ends inside an op", ErrMalformedAttribution, s)
		}
		switch s[i] {
		case '+', '-', '=':
			op.Opcode = s[i]
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedAttribution, s[i], i)
		}
		n, next, err := parseBase36(s, i+1)
		if err != nil {
			return nil, err
		}
		op.Chars = n
		i = next
		ops = append(ops, op)
	}
	return ops, nil
}

func parseBase36(s string, start int) (int, int, error) {
	end := start
	for end < len(s) && isBase36(s[end]) {
		end++
	}
	if end == start {
		return 0, start, fmt.Errorf("%w: expected number at offset %d", ErrMalformedAttribution, start)
	}
	n, err := strconv.ParseInt(s[start:end], 36, 0)
	if err != nil {
		return 0, start, fmt.Errorf("%w: number %q: %v", ErrMalformedAttribution, s[start:end], err)
	}
	return int(n), end, nil
}

func isBase36(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z')
}

// Encode renders ops back into an attribution string.
func Encode(ops []Op) string {
	var b strings.Builder
	for _, op := range ops {
		for _, a := range op.Attribs {
			b.WriteByte('*')
			b.WriteString(strconv.FormatInt(int64(a), 36))
		}
		if op.Lines > 0 {
			b.WriteByte('|')
			b.WriteString(strconv.FormatInt(int64(op.Lines), 36))
		}
		b.WriteByte(op.Opcode)
		b.WriteString(strconv.FormatInt(int64(op.Chars), 36))
	}
	return b.String()
}

// Length sums the chars of ops.
func Length(ops []Op) int {
	n := 0
	for _, op := range ops {
		n += op.Chars
	}
	return n
}

// Merge joins neighbouring ops with equal opcode and attributes and drops
// empty ones. Chars without newlines that follow a multi-line op are held
// back and folded in when a matching op with lines arrives, so every op
// carrying lines still ends with a newline and a run of equally attributed
// lines becomes a single op.
func Merge(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	var (
		buf     Op
		pending int // chars after buf's last newline
	)
	flush := func() {
		if buf.Chars == 0 {
			return
		}
		out = append(out, buf)
		if pending > 0 {
			out = append(out, Op{Opcode: buf.Opcode, Chars: pending, Attribs: buf.Attribs})
		}
		buf, pending = Op{}, 0
	}
	for _, op := range ops {
		if op.Chars == 0 {
			continue
		}
		if buf.Chars > 0 && buf.Opcode == op.Opcode && slices.Equal(buf.Attribs, op.Attribs) {
			switch {
			case op.Lines > 0:
				buf.Chars += pending + op.Chars
				buf.Lines += op.Lines
				pending = 0
			case buf.Lines == 0:
				buf.Chars += op.Chars
			default:
				pending += op.Chars
			}
			continue
		}
		flush()
		buf = op
	}
	flush()
	return out
}

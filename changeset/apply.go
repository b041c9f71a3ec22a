package changeset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Changeset is an unpacked Etherpad changeset "Z:<old><op><diff><ops>$<bank>".
type Changeset struct {
	OldLen   int
	NewLen   int
	Ops      []Op
	CharBank string
}

// Unpack parses a serialized changeset.
func Unpack(cs string) (Changeset, error) {
	if !strings.HasPrefix(cs, "Z:") {
		return Changeset{}, fmt.Errorf("%w: missing Z: header", ErrMalformedChangeset)
	}
	oldLen, i, err := parseBase36(cs, 2)
	if err != nil {
		return Changeset{}, fmt.Errorf("%w: old length: %v", ErrMalformedChangeset, err)
	}
	if i >= len(cs) || (cs[i] != '>' && cs[i] != '<') {
		return Changeset{}, fmt.Errorf("%w: missing length sign", ErrMalformedChangeset)
	}
	sign := cs[i]
	diff, i, err := parseBase36(cs, i+1)
	if err != nil {
		return Changeset{}, fmt.Errorf("%w: length delta: %v", ErrMalformedChangeset, err)
	}
	newLen := oldLen + diff
	if sign == '<' {
		newLen = oldLen - diff
	}
	opsEnd := strings.IndexByte(cs[i:], '$')
	if opsEnd < 0 {
		return Changeset{}, fmt.Errorf("%w: missing char bank", ErrMalformedChangeset)
	}
	ops, err := ParseAttribution(cs[i : i+opsEnd])
	if err != nil {
		return Changeset{}, fmt.Errorf("%w: %v", ErrMalformedChangeset, err)
	}
	return Changeset{OldLen: oldLen, NewLen: newLen, Ops: ops, CharBank: cs[i+opsEnd+1:]}, nil
}

// Pack serializes a changeset.
func (c Changeset) Pack() string {
	var b strings.Builder
	b.WriteString("Z:")
	b.WriteString(strconv.FormatInt(int64(c.OldLen), 36))
	if c.NewLen >= c.OldLen {
		b.WriteByte('>')
		b.WriteString(strconv.FormatInt(int64(c.NewLen-c.OldLen), 36))
	} else {
		b.WriteByte('<')
		b.WriteString(strconv.FormatInt(int64(c.OldLen-c.NewLen), 36))
	}
	b.WriteString(Encode(c.Ops))
	b.WriteByte('$')
	b.WriteString(c.CharBank)
	return b.String()
}

// ApplyToAText applies a serialized changeset to an attributed text.
// Attribute changes carried by keep ops are interned into pool.
func ApplyToAText(cs string, at AText, pool *Pool) (AText, error) {
	c, err := Unpack(cs)
	if err != nil {
		return AText{}, err
	}
	text, err := c.applyToText(at.Text)
	if err != nil {
		return AText{}, err
	}
	attOps, err := ParseAttribution(at.Attribs)
	if err != nil {
		return AText{}, err
	}
	ops, err := c.applyToAttribution(attOps, pool)
	if err != nil {
		return AText{}, err
	}
	units := UTF16(text)
	if n := Length(ops); n != len(units) {
		return AText{}, fmt.Errorf("%w: attribution covers %d units, text has %d", ErrMalformedChangeset, n, len(units))
	}
	// line counts are taken from the new text, so ops always end at a
	// newline when they hold one
	var flat []Op
	for _, line := range SplitLines(ops, units) {
		flat = append(flat, line...)
	}
	return AText{Text: text, Attribs: Encode(Merge(flat))}, nil
}

func (c Changeset) applyToText(s string) (string, error) {
	units := UTF16(s)
	if len(units) != c.OldLen {
		return "", fmt.Errorf("%w: expects length %d, text has %d", ErrMalformedChangeset, c.OldLen, len(units))
	}
	bank := UTF16(c.CharBank)
	out := make([]uint16, 0, c.NewLen)
	pos, bpos := 0, 0
	for _, op := range c.Ops {
		switch op.Opcode {
		case '+':
			if bpos+op.Chars > len(bank) {
				return "", fmt.Errorf("%w: char bank exhausted", ErrMalformedChangeset)
			}
			out = append(out, bank[bpos:bpos+op.Chars]...)
			bpos += op.Chars
		case '-', '=':
			if pos+op.Chars > len(units) {
				return "", fmt.Errorf("%w: op runs past end of text", ErrMalformedChangeset)
			}
			if op.Opcode == '=' {
				out = append(out, units[pos:pos+op.Chars]...)
			}
			pos += op.Chars
		}
	}
	out = append(out, units[pos:]...)
	return String(out), nil
}

// applyToAttribution zips the document ops with the changeset ops. The
// result is unmerged and its line counts are not meaningful.
func (c Changeset) applyToAttribution(attOps []Op, pool *Pool) ([]Op, error) {
	var (
		out             []Op
		att, cs         Op
		ai, ci          int
		haveAtt, haveCs bool
	)
	for {
		if !haveAtt && ai < len(attOps) {
			att = attOps[ai]
			ai++
			haveAtt = true
		}
		if !haveCs && ci < len(c.Ops) {
			cs = c.Ops[ci]
			ci++
			haveCs = true
		}
		switch {
		case !haveAtt && !haveCs:
			return out, nil
		case !haveCs:
			out = append(out, Op{Opcode: '+', Chars: att.Chars, Attribs: att.Attribs})
			haveAtt = false
			continue
		case cs.Opcode == '+':
			out = append(out, Op{Opcode: '+', Chars: cs.Chars, Attribs: cs.Attribs})
			haveCs = false
			continue
		case !haveAtt:
			return nil, fmt.Errorf("%w: %q op past end of document", ErrMalformedChangeset, cs.Opcode)
		}

		n := min(cs.Chars, att.Chars)
		if cs.Opcode == '=' {
			out = append(out, Op{Opcode: '+', Chars: n, Attribs: composeAttribs(att.Attribs, cs.Attribs, pool)})
		}
		att.Chars -= n
		cs.Chars -= n
		if att.Chars == 0 {
			haveAtt = false
		}
		if cs.Chars == 0 {
			haveCs = false
		}
	}
}

// composeAttribs applies the attribute changes of a keep op: a pair with an
// empty value removes the attribute, any other pair sets it.
func composeAttribs(base, change []int, pool *Pool) []int {
	if len(change) == 0 {
		return base
	}
	attrs := make([]Attrib, 0, len(base)+len(change))
	for _, num := range base {
		if a, ok := pool.Attrib(num); ok {
			attrs = append(attrs, a)
		}
	}
	for _, num := range change {
		a, ok := pool.Attrib(num)
		if !ok {
			continue
		}
		found := false
		for i := range attrs {
			if attrs[i].Name == a.Name {
				attrs[i].Value = a.Value
				found = true
				break
			}
		}
		if !found && a.Value != "" {
			attrs = append(attrs, a)
		}
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].Name+","+attrs[i].Value < attrs[j].Name+","+attrs[j].Value
	})
	out := make([]int, 0, len(attrs))
	for _, a := range attrs {
		if a.Value == "" {
			continue
		}
		out = append(out, pool.Put(a.Name, a.Value))
	}
	return out
}

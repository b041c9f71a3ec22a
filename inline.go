package moinmoin

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

// propState is where an inline property stands at the start of a run.
// Between runs every property is either closed or open.
type propState uint8

const (
	stateClosed propState = iota
	stateEntering
	stateStaying // open, but closed and reopened to keep nesting
	stateLeaving
	stateOpen
)

// transition moves a settled state by whether the next run carries the
// property.
func transition(s propState, present bool) propState {
	switch s {
	case stateClosed:
		if present {
			return stateEntering
		}
		return stateClosed
	case stateOpen:
		if present {
			return stateOpen
		}
		return stateLeaving
	case stateEntering, stateStaying, stateLeaving:
		panic(fmt.Sprintf("moinmoin: transition from unsettled state %d", s))
	default:
		panic(fmt.Sprintf("moinmoin: unknown property state %d", s))
	}
}

// settle folds a run's transient state back into closed or open.
func (s propState) settle() propState {
	switch s {
	case stateEntering, stateStaying, stateOpen:
		return stateOpen
	default:
		return stateClosed
	}
}

func (s propState) closes() bool { return s == stateLeaving || s == stateStaying }
func (s propState) opens() bool  { return s == stateEntering || s == stateStaying }

// inlineRenderer writes one line of runs as nested inline markup. Nothing
// carries over from one line to the next.
type inlineRenderer struct {
	idx      attribIndex
	out      *bytes.Buffer
	state    [numProps]propState
	stack    []property // innermost last
	stackArr [numProps]property
}

func (r *inlineRenderer) reset(out *bytes.Buffer) {
	r.out = out
	r.state = [numProps]propState{}
	r.stack = r.stackArr[:0]
}

// renderLine writes the line text run by run. When stripMarker is set the
// first unit of visible text is dropped.
func (r *inlineRenderer) renderLine(out *bytes.Buffer, text []uint16, ops []changeset.Op, stripMarker bool) {
	r.reset(out)
	if len(text) == 0 {
		return
	}
	it := changeset.NewRunIterator(ops, 0, len(text))
	pos := 0
	for {
		run, ok := it.Next()
		if !ok {
			break
		}
		r.apply(run.Attribs)
		chars := run.Chars
		if run.Lines > 0 {
			chars--
		}
		end := min(pos+chars, len(text))
		s := stripFormFeed(changeset.String(text[pos:end]))
		pos = end
		if stripMarker {
			_, size := utf8.DecodeRuneInString(s)
			s = s[size:]
			stripMarker = false
		}
		r.out.WriteString(s)
	}
	r.drain()
}

// apply moves every property to the state the run asks for and writes the
// tags needed to get there. Once any property enters or leaves, all later
// (inner) open properties are closed and reopened so the stack stays in
// nesting order.
func (r *inlineRenderer) apply(nums []int) {
	var present [numProps]bool
	for _, num := range nums {
		if p, ok := r.idx.props[num]; ok {
			present[p] = true
		}
	}
	changed := false
	for p := range numProps {
		r.state[p] = transition(r.state[p], present[p])
		if r.state[p] == stateEntering || r.state[p] == stateLeaving {
			changed = true
		}
	}
	if !changed {
		return
	}
	cascade := false
	for p := range numProps {
		switch r.state[p] {
		case stateEntering, stateLeaving:
			cascade = true
		case stateOpen:
			if cascade {
				r.state[p] = stateStaying
			}
		}
	}
	for i := len(r.stack) - 1; i >= 0; i-- {
		p := r.stack[i]
		if r.state[p].closes() {
			r.out.WriteString(inlineTags[p].End)
			r.stack = append(r.stack[:i], r.stack[i+1:]...)
		}
	}
	for p := range numProps {
		if r.state[p].opens() {
			r.out.WriteString(inlineTags[p].Start)
			r.stack = append(r.stack, p)
		}
		r.state[p] = r.state[p].settle()
	}
}

// drain closes everything still open, innermost first.
func (r *inlineRenderer) drain() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		r.out.WriteString(inlineTags[r.stack[i]].End)
	}
	r.stack = r.stack[:0]
	r.state = [numProps]propState{}
}

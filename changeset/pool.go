package changeset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Attrib is a single attribute as stored in a Pool.
type Attrib struct {
	Name  string
	Value string
}

// Pool maps attribute numbers referenced by attribution strings to their
// (name, value) pairs. A Pool belongs to one pad and one request; the
// converter only reads it.
type Pool struct {
	numToAttrib map[int]Attrib
	attribToNum map[Attrib]int
	nextNum     int
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		numToAttrib: make(map[int]Attrib),
		attribToNum: make(map[Attrib]int),
	}
}

// Put returns the number of the attribute, adding it if needed.
func (p *Pool) Put(name, value string) int {
	a := Attrib{Name: name, Value: value}
	if num, ok := p.attribToNum[a]; ok {
		return num
	}
	num := p.nextNum
	p.nextNum++
	p.numToAttrib[num] = a
	p.attribToNum[a] = num
	return num
}

// Attrib resolves an attribute number. Unknown numbers report false.
func (p *Pool) Attrib(num int) (Attrib, bool) {
	if p == nil {
		return Attrib{}, false
	}
	a, ok := p.numToAttrib[num]
	return a, ok
}

// Lookup returns the number of an attribute without adding it.
func (p *Pool) Lookup(name, value string) (int, bool) {
	if p == nil {
		return 0, false
	}
	num, ok := p.attribToNum[Attrib{Name: name, Value: value}]
	return num, ok
}

// Len reports the number of attributes in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.numToAttrib)
}

// Clone returns an independent copy. Cloning nil yields an empty pool.
func (p *Pool) Clone() *Pool {
	out := NewPool()
	if p == nil {
		return out
	}
	for num, a := range p.numToAttrib {
		out.numToAttrib[num] = a
	}
	for a, num := range p.attribToNum {
		out.attribToNum[a] = num
	}
	out.nextNum = p.nextNum
	return out
}

type poolJSON struct {
	NumToAttrib map[string][]any `json:"numToAttrib"`
	NextNum     int              `json:"nextNum"`
}

// MarshalJSON encodes the pool in Etherpad's layout.
func (p *Pool) MarshalJSON() ([]byte, error) {
	out := poolJSON{NumToAttrib: make(map[string][]any, len(p.numToAttrib)), NextNum: p.nextNum}
	for num, a := range p.numToAttrib {
		out.NumToAttrib[strconv.Itoa(num)] = []any{a.Name, a.Value}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes Etherpad's {"numToAttrib": ..., "nextNum": n}.
// Non-string values (older pads store ["bold", true]) are kept in their
// JSON text form.
func (p *Pool) UnmarshalJSON(data []byte) error {
	var in poolJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("changeset: decode pool: %w", err)
	}
	*p = *NewPool()
	keys := make([]int, 0, len(in.NumToAttrib))
	for key, pair := range in.NumToAttrib {
		num, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("changeset: decode pool: attribute number %q: %w", key, err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("changeset: decode pool: attribute %d has %d fields", num, len(pair))
		}
		a := Attrib{Name: scalarString(pair[0]), Value: scalarString(pair[1])}
		p.numToAttrib[num] = a
		keys = append(keys, num)
	}
	// the lowest number wins when a pool carries duplicate pairs
	sort.Ints(keys)
	for _, num := range keys {
		a := p.numToAttrib[num]
		if _, dup := p.attribToNum[a]; !dup {
			p.attribToNum[a] = num
		}
		if num >= p.nextNum {
			p.nextNum = num + 1
		}
	}
	if in.NextNum > p.nextNum {
		p.nextNum = in.NextNum
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

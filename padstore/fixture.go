package padstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

// Fixtures describe pads by line in YAML:
//
//	pads:
//	  notes:
//	    lines:
//	      - text: Title
//	        heading: h2
//	      - list: bullet1
//	        runs:
//	          - text: bold
//	            attribs: [bold]
//	          - text: " and plain"
//	    changesets:
//	      - "Z:..."
//
// A list or heading line gets a "*" line marker carrying lmkr=1 and those
// attributes, the way the editor stores them. Code lines carry the
// attribute on their text unless marker is set.
type fixtureFile struct {
	Pads map[string]FixturePad `yaml:"pads"`
}

// FixturePad is a pad at revision 0 plus the changesets of its later
// revisions.
type FixturePad struct {
	Author     string        `yaml:"author"`
	Lines      []FixtureLine `yaml:"lines"`
	Changesets []string      `yaml:"changesets"`
}

// FixtureLine is one line. Text is shorthand for a single unformatted run.
type FixtureLine struct {
	Text    string       `yaml:"text"`
	Heading string       `yaml:"heading"`
	List    string       `yaml:"list"`
	Marker  *bool        `yaml:"marker"`
	Runs    []FixtureRun `yaml:"runs"`
}

// FixtureRun is text with attributes. An attribute is written "bold"
// (meaning bold=true) or "name=value".
type FixtureRun struct {
	Text    string   `yaml:"text"`
	Attribs []string `yaml:"attribs"`
}

func (l FixtureLine) marker() bool {
	if l.Marker != nil {
		return *l.Marker
	}
	return l.List != "" || (l.Heading != "" && l.Heading != "code")
}

// BuildAText builds an attributed text and its pool from lines.
func BuildAText(lines []FixtureLine) (changeset.AText, *changeset.Pool, error) {
	pool := changeset.NewPool()
	var (
		text strings.Builder
		ops  []changeset.Op
	)
	add := func(s string, attribs []int, lines int) {
		if s == "" {
			return
		}
		text.WriteString(s)
		ops = append(ops, changeset.Op{Opcode: '+', Chars: len(changeset.UTF16(s)), Lines: lines, Attribs: attribs})
	}
	for i, line := range lines {
		var lineAttribs []string
		if line.Heading != "" {
			lineAttribs = append(lineAttribs, "heading="+line.Heading)
		}
		if line.List != "" {
			lineAttribs = append(lineAttribs, "list="+line.List)
		}
		if line.marker() {
			nums, err := putAttribs(pool, append([]string{"lmkr=1"}, lineAttribs...))
			if err != nil {
				return changeset.AText{}, nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			add("*", nums, 0)
		}
		runs := line.Runs
		if len(runs) == 0 {
			runs = []FixtureRun{{Text: line.Text}}
		}
		for j, run := range runs {
			if strings.ContainsRune(run.Text, '\n') {
				return changeset.AText{}, nil, fmt.Errorf("line %d run %d: text contains a newline", i+1, j+1)
			}
			names := run.Attribs
			if j == 0 && !line.marker() && len(lineAttribs) > 0 {
				// without a marker the first run carries the line attributes
				if run.Text == "" {
					return changeset.AText{}, nil, fmt.Errorf("line %d: line attributes need text or a marker", i+1)
				}
				names = append(slices.Clone(lineAttribs), names...)
			}
			nums, err := putAttribs(pool, names)
			if err != nil {
				return changeset.AText{}, nil, fmt.Errorf("line %d run %d: %w", i+1, j+1, err)
			}
			add(run.Text, nums, 0)
		}
		add("\n", nil, 1)
	}
	if len(lines) == 0 {
		add("\n", nil, 1)
	}
	return changeset.AText{Text: text.String(), Attribs: changeset.Encode(changeset.Merge(ops))}, pool, nil
}

func putAttribs(pool *changeset.Pool, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	nums := make([]int, 0, len(names))
	for _, attr := range names {
		name, value, found := strings.Cut(attr, "=")
		if !found {
			value = "true"
		}
		if name == "" {
			return nil, fmt.Errorf("attribute %q has no name", attr)
		}
		nums = append(nums, pool.Put(name, value))
	}
	slices.Sort(nums)
	return slices.Compact(nums), nil
}

// LoadYAML writes the pads of a fixture file into dst as Etherpad records
// and returns their ids.
func LoadYAML(ctx context.Context, r io.Reader, dst Putter) ([]string, error) {
	var file fixtureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("padstore: decode fixtures: %w", err)
	}
	padIDs := make([]string, 0, len(file.Pads))
	for padID := range file.Pads {
		padIDs = append(padIDs, padID)
	}
	slices.Sort(padIDs)
	for _, padID := range padIDs {
		if err := putFixture(ctx, dst, padID, file.Pads[padID]); err != nil {
			return nil, fmt.Errorf("padstore: fixture %q: %w", padID, err)
		}
	}
	return padIDs, nil
}

func putFixture(ctx context.Context, dst Putter, padID string, fx FixturePad) error {
	at, pool, err := BuildAText(fx.Lines)
	if err != nil {
		return err
	}
	first, err := initialChangeset(at)
	if err != nil {
		return err
	}
	ts := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	snapshot := at
	if err := putJSON(ctx, dst, revKey(padID, 0), revRecord{
		Changeset: first,
		Meta:      revMeta{Author: fx.Author, Timestamp: ts, AText: &snapshot},
	}); err != nil {
		return err
	}
	for i, cs := range fx.Changesets {
		rev := i + 1
		at, err = changeset.ApplyToAText(cs, at, pool)
		if err != nil {
			return fmt.Errorf("revision %d: %w", rev, err)
		}
		rec := revRecord{Changeset: cs, Meta: revMeta{Author: fx.Author, Timestamp: ts + int64(rev)*1000}}
		if rev%keyRevInterval == 0 {
			snapshot := at
			rec.Meta.AText = &snapshot
		}
		if err := putJSON(ctx, dst, revKey(padID, rev), rec); err != nil {
			return err
		}
	}
	return putJSON(ctx, dst, padKey(padID), padRecord{AText: at, Pool: pool, Head: len(fx.Changesets)})
}

// initialChangeset is the changeset that turns a new pad's "\n" into at.
func initialChangeset(at changeset.AText) (string, error) {
	ops, err := changeset.ParseAttribution(at.Attribs)
	if err != nil {
		return "", err
	}
	units := changeset.UTF16(at.Text)
	n := len(units)
	inserted := changeset.Subattribution(ops, 0, n-1)
	inserted = append(inserted, changeset.Op{Opcode: '=', Chars: 1, Lines: 1})
	return changeset.Changeset{
		OldLen:   1,
		NewLen:   n,
		Ops:      inserted,
		CharBank: changeset.String(units[:n-1]),
	}.Pack(), nil
}

func putJSON(ctx context.Context, dst Putter, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return dst.Put(ctx, key, data)
}

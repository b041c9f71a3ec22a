package moinmoin

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
	"github.com/escapewindow/ep-moinmoin-export/padstore"
)

type (
	fl = padstore.FixtureLine
	fr = padstore.FixtureRun
)

func run(text string, attribs ...string) fr {
	return fr{Text: text, Attribs: attribs}
}

func convertLines(t *testing.T, lines []fl, opts ...Option) string {
	t.Helper()
	at, pool, err := padstore.BuildAText(lines)
	if err != nil {
		t.Fatalf("build atext: %v", err)
	}
	out, err := Convert(ConvertRequest{
		AText:   at,
		Pool:    pool,
		Options: append([]Option{WithBanner(false)}, opts...),
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return out
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		lines []fl
		opts  []Option
		want  string
	}{
		{
			name:  "plain",
			lines: []fl{{Text: "hello"}, {Text: "world"}},
			want:  "hello\nworld\n",
		},
		{
			name:  "empty document",
			lines: nil,
			want:  "\n",
		},
		{
			name:  "single property span",
			lines: []fl{{Runs: []fr{run("bold", "bold")}}},
			want:  "'''bold'''\n",
		},
		{
			name:  "each property",
			lines: []fl{{Runs: []fr{run("b", "bold"), run(" "), run("i", "italic"), run(" "), run("u", "underline"), run(" "), run("s", "strikethrough")}}},
			want:  "'''b''' ''i'' __u__ --(s)--\n",
		},
		{
			name:  "outer property entering late",
			lines: []fl{{Runs: []fr{run("a", "underline"), run("b", "bold", "underline"), run("c", "bold")}}},
			want:  "__a__'''__b__c'''\n",
		},
		{
			name:  "outer property leaving first",
			lines: []fl{{Runs: []fr{run("a", "bold", "italic"), run("b", "italic"), run("c")}}},
			want:  "'''''a'''''''b''c\n",
		},
		{
			name:  "inner property leaving",
			lines: []fl{{Runs: []fr{run("a", "bold", "italic"), run("b", "bold"), run("c")}}},
			want:  "'''''a''b'''c\n",
		},
		{
			name:  "formatting never spans lines",
			lines: []fl{{Runs: []fr{run("one", "bold")}}, {Runs: []fr{run("two", "bold")}}},
			want:  "'''one'''\n'''two'''\n",
		},
		{
			name:  "unknown attributes ignored",
			lines: []fl{{Runs: []fr{run("x", "author=a.1", "foo=bar", "bold=false")}}},
			want:  "x\n",
		},
		{
			name:  "form feed removed",
			lines: []fl{{Runs: []fr{run("a\fb\f", "italic"), run("\fc")}}},
			want:  "''ab''c\n",
		},
		{
			name:  "utf16 lengths",
			lines: []fl{{Runs: []fr{run("😀"), run("é", "bold"), run("ß")}}},
			want:  "😀'''é'''ß\n",
		},
		{
			name:  "heading marker stripped",
			lines: []fl{{Text: "Title", Heading: "h2"}},
			want:  "== Title ==\n",
		},
		{
			name:  "heading star in text stripped",
			lines: []fl{{Text: "*Title", Heading: "h2", Marker: boolPtr(false)}},
			want:  "== Title ==\n",
		},
		{
			name:  "heading marker kept",
			lines: []fl{{Text: "Title", Heading: "h3", Marker: boolPtr(false)}},
			opts:  []Option{WithHeadingMarker(false)},
			want:  "=== Title ===\n",
		},
		{
			name:  "heading levels",
			lines: []fl{{Text: "a", Heading: "h1"}, {Text: "b", Heading: "h6"}, {Text: "c", Heading: "h7"}},
			want:  "= a =\n====== b ======\n*c\n",
		},
		{
			name:  "heading with formatting",
			lines: []fl{{Heading: "h1", Runs: []fr{run("big "), run("deal", "bold")}}},
			want:  "= big '''deal''' =\n",
		},
		{
			name:  "code block carry",
			lines: []fl{{Text: "line1"}, {Text: "line2", Heading: "code"}, {Text: "line3"}},
			want:  "line1\n{{{\nline2\n}}}\nline3\n",
		},
		{
			name:  "code block spans lines",
			lines: []fl{{Text: "x"}, {Text: "a := 1", Heading: "code"}, {Text: "b := 2", Heading: "code"}, {Text: "y"}},
			want:  "x\n{{{\na := 1\nb := 2\n}}}\ny\n",
		},
		{
			name:  "trailing code block",
			lines: []fl{{Text: "intro"}, {Text: "tail", Heading: "code"}},
			want:  "intro\n{{{\ntail\n}}}\n",
		},
		{
			name:  "code block first",
			lines: []fl{{Text: "only", Heading: "code"}},
			want:  "{{{\nonly\n}}}\n",
		},
		{
			name:  "heading after code block",
			lines: []fl{{Text: "c", Heading: "code"}, {Text: "T", Heading: "h1"}},
			want:  "{{{\nc\n}}}\n= T =\n",
		},
		{
			name:  "code marker stripped on request",
			lines: []fl{{Text: "x", Heading: "code", Marker: boolPtr(true)}, {Text: "y", Heading: "code", Marker: boolPtr(true)}},
			opts:  []Option{WithCodeMarker(true)},
			want:  "{{{\nx\ny\n}}}\n",
		},
		{
			name:  "code marker kept by default",
			lines: []fl{{Text: "x", Heading: "code", Marker: boolPtr(true)}},
			want:  "{{{\n*x\n}}}\n",
		},
		{
			name:  "unordered list",
			lines: []fl{{Text: "item", List: "bullet2"}},
			want:  "  * item\n",
		},
		{
			name:  "ordered list",
			lines: []fl{{Text: "first", List: "number1"}, {Text: "second", List: "number1"}},
			want:  " 1. first\n 1. second\n",
		},
		{
			name:  "other list kind",
			lines: []fl{{Text: "indented", List: "indent3"}},
			want:  "    indented\n",
		},
		{
			name:  "list value without level",
			lines: []fl{{Text: "odd", List: "bullet"}},
			want:  "odd\n",
		},
		{
			name:  "empty list item has no prefix",
			lines: []fl{{List: "bullet1"}, {Text: "after"}},
			want:  "\nafter\n",
		},
		{
			name:  "list item with formatting",
			lines: []fl{{List: "bullet1", Runs: []fr{run("x", "bold"), run("y")}}},
			want:  " * '''x'''y\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertLines(t, tt.lines, tt.opts...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func boolPtr(v bool) *bool { return &v }

func TestConvertBanner(t *testing.T) {
	at, pool, err := padstore.BuildAText([]fl{{Text: "x"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := Convert(ConvertRequest{AText: at, Pool: pool})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "# Exported from Etherpad to MoinMoin ( https://github.com/smilix/ep_moinmoin_export ).\n" +
		"# tip: Use <<BR>> or an extra blank line for a new line.\n" +
		"x\n"
	if out != want {
		t.Fatalf("unexpected output\nwant: %q\n got: %q", want, out)
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	lines := []fl{
		{Text: "Title", Heading: "h1"},
		{List: "bullet1", Runs: []fr{run("a", "bold", "italic"), run("b", "italic"), run("c", "strikethrough")}},
		{Text: "code", Heading: "code"},
	}
	first := convertLines(t, lines)
	for range 5 {
		if got := convertLines(t, lines); got != first {
			t.Fatalf("output changed between runs\nfirst: %q\n  got: %q", first, got)
		}
	}
}

func TestConvertRejectsMalformedAttribution(t *testing.T) {
	tests := []changeset.AText{
		{Text: "ab\n", Attribs: "|1+1"},
		{Text: "ab\n", Attribs: "|1+9"},
		{Text: "ab\n", Attribs: "*"},
	}
	for _, at := range tests {
		out, err := Convert(ConvertRequest{AText: at, Pool: changeset.NewPool()})
		if !errors.Is(err, changeset.ErrMalformedAttribution) {
			t.Fatalf("%+v: expected ErrMalformedAttribution, got %v", at, err)
		}
		if out != "" {
			t.Fatalf("%+v: expected no output, got %q", at, out)
		}
	}
}

func TestConvertNilPool(t *testing.T) {
	out, err := Convert(ConvertRequest{
		AText:   changeset.AText{Text: "a\n", Attribs: "*0|1+2"},
		Options: []Option{WithBanner(false)},
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out != "a\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRender(t *testing.T) {
	at, pool, err := padstore.BuildAText([]fl{{Runs: []fr{run("hi", "underline")}}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var out bytes.Buffer
	err = Render(RenderRequest{AText: at, Pool: pool, Writer: &out, Options: []Option{WithBanner(false)}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "__hi__\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := Render(RenderRequest{AText: at, Pool: pool}); err == nil {
		t.Fatalf("expected error for nil writer")
	}
	if err := Render(RenderRequest{AText: at, Pool: pool, Writer: failWriter{}}); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}

	out.Reset()
	err = Render(RenderRequest{AText: changeset.AText{Text: "x\n", Attribs: "+1"}, Writer: &out})
	if !errors.Is(err, changeset.ErrMalformedAttribution) {
		t.Fatalf("expected ErrMalformedAttribution, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("partial output written: %q", out.String())
	}
}

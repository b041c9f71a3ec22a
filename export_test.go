package moinmoin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/escapewindow/ep-moinmoin-export/padstore"
)

const exportFixture = `
pads:
  notes:
    lines:
      - text: Notes
        heading: h1
      - runs:
          - text: a
            attribs: [bold]
          - text: b
    changesets:
      - "Z:a>1=9+1$c"
  broken:
    lines:
      - text: x
`

func newFixtureStore(t *testing.T) *padstore.Store {
	t.Helper()
	mem := padstore.NewMemory()
	if _, err := padstore.LoadYAML(context.Background(), strings.NewReader(exportFixture), mem); err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	// a pad record whose attribution does not cover its text
	err := mem.Put(context.Background(), "pad:broken", []byte(`{"atext":{"text":"x\n","attribs":"+1"},"pool":{"numToAttrib":{},"nextNum":0},"head":0}`))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	return padstore.New(mem)
}

func TestExport(t *testing.T) {
	store := newFixtureStore(t)
	ctx := context.Background()

	out, err := Export(ctx, ExportRequest{Store: store, PadID: "notes"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := Banner + "= Notes =\n'''a'''bc\n"
	if out != want {
		t.Fatalf("unexpected output\nwant: %q\n got: %q", want, out)
	}

	rev := 0
	out, err = Export(ctx, ExportRequest{Store: store, PadID: "notes", Revision: &rev, Options: []Option{WithBanner(false)}})
	if err != nil {
		t.Fatalf("export rev 0: %v", err)
	}
	if out != "= Notes =\n'''a'''b\n" {
		t.Fatalf("unexpected rev 0 output %q", out)
	}
}

func TestExportErrors(t *testing.T) {
	store := newFixtureStore(t)
	ctx := context.Background()
	rev := func(n int) *int { return &n }

	tests := []struct {
		name string
		req  ExportRequest
		want error
	}{
		{"unknown pad", ExportRequest{Store: store, PadID: "missing"}, padstore.ErrNotFound},
		{"future revision", ExportRequest{Store: store, PadID: "notes", Revision: rev(9)}, padstore.ErrRevisionUnavailable},
		{"negative revision", ExportRequest{Store: store, PadID: "notes", Revision: rev(-1)}, ErrInvalidRevision},
		{"invalid id", ExportRequest{Store: store, PadID: "a/b"}, ErrInvalidPadID},
	}
	for _, tt := range tests {
		out, err := Export(ctx, tt.req)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if out != "" {
			t.Fatalf("%s: partial output %q", tt.name, out)
		}
	}
	if _, err := Export(ctx, ExportRequest{PadID: "notes"}); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestExportLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := Export(context.Background(), ExportRequest{
		Store:   newFixtureStore(t),
		PadID:   "notes",
		Options: []Option{WithLogger(logger)},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	logs := buf.String()
	for _, want := range []string{"pad fetched", "line rendered", "class=h1", `preview="= Notes ="`} {
		if !strings.Contains(logs, want) {
			t.Fatalf("log missing %q:\n%s", want, logs)
		}
	}
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler(newFixtureStore(t), WithBanner(false)))
	defer srv.Close()

	get := func(path string, header http.Header) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}
	body := func(resp *http.Response) string {
		t.Helper()
		var b bytes.Buffer
		if _, err := b.ReadFrom(resp.Body); err != nil {
			t.Fatalf("read body: %v", err)
		}
		return b.String()
	}

	resp := get("/p/notes/export/moinmoin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("content type %q", ct)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing request id")
	}
	if got := body(resp); got != "= Notes =\n'''a'''bc\n" {
		t.Fatalf("body %q", got)
	}
	etag := resp.Header.Get("ETag")
	if !strings.HasPrefix(etag, `"`) || len(etag) != 34 {
		t.Fatalf("unexpected etag %q", etag)
	}

	resp = get("/p/notes/export/moinmoin", http.Header{"If-None-Match": {etag}, "X-Request-Id": {"abc"}})
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") != "abc" {
		t.Fatalf("request id not kept: %q", resp.Header.Get("X-Request-Id"))
	}

	resp = get("/p/notes/0/export/moinmoin", nil)
	if got := body(resp); resp.StatusCode != http.StatusOK || got != "= Notes =\n'''a'''b\n" {
		t.Fatalf("rev 0: status %d body %q", resp.StatusCode, got)
	}
	if resp.Header.Get("ETag") == etag {
		t.Fatalf("revisions share an etag")
	}

	statuses := map[string]int{
		"/p/missing/export/moinmoin":  http.StatusNotFound,
		"/p/notes/7/export/moinmoin":  http.StatusNotFound,
		"/p/notes/x/export/moinmoin":  http.StatusBadRequest,
		"/p/notes/-1/export/moinmoin": http.StatusBadRequest,
		"/p/a$b/export/moinmoin":      http.StatusBadRequest,
		"/p/broken/export/moinmoin":   http.StatusInternalServerError,
	}
	for path, want := range statuses {
		if resp := get(path, nil); resp.StatusCode != want {
			t.Fatalf("%s: status %d, want %d", path, resp.StatusCode, want)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/p/notes/export/moinmoin", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status %d", resp.StatusCode)
	}
}

func TestMatchesETag(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`*`, true},
		{`"other"`, false},
	}
	for _, tt := range tests {
		if got := matchesETag(tt.header, `"abc"`); got != tt.want {
			t.Fatalf("matchesETag(%q) = %v", tt.header, got)
		}
	}
}

package moinmoin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

var converterPool = sync.Pool{
	New: func() any {
		return &converter{}
	},
}

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// ConvertRequest configures Convert.
type ConvertRequest struct {
	AText   changeset.AText
	Pool    *changeset.Pool
	Options []Option
}

// RenderRequest configures Render.
type RenderRequest struct {
	AText   changeset.AText
	Pool    *changeset.Pool
	Writer  io.Writer
	Options []Option
}

// Convert renders an attributed text as a MoinMoin document.
func Convert(req ConvertRequest) (string, error) {
	out := bufferPool.Get().(*bytes.Buffer)
	out.Reset()
	defer bufferPool.Put(out)
	if err := convert(out, req.AText, req.Pool, buildConfig(req.Options)); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Render converts and writes the whole document to the writer. Nothing is
// written when conversion fails.
func Render(req RenderRequest) error {
	if req.Writer == nil {
		return errors.New("render: writer is nil")
	}
	out := bufferPool.Get().(*bytes.Buffer)
	out.Reset()
	defer bufferPool.Put(out)
	if err := convert(out, req.AText, req.Pool, buildConfig(req.Options)); err != nil {
		return err
	}
	if _, err := out.WriteTo(req.Writer); err != nil {
		return fmt.Errorf("render: write: %w", err)
	}
	return nil
}

func convert(out *bytes.Buffer, at changeset.AText, pool *changeset.Pool, cfg convertConfig) error {
	ops, err := changeset.ParseAttribution(at.Attribs)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	text := changeset.UTF16(at.Text)
	if got := changeset.Length(ops); got != len(text) {
		return fmt.Errorf("convert: %w: attribs cover %d units, text has %d",
			changeset.ErrMalformedAttribution, got, len(text))
	}
	c := converterPool.Get().(*converter)
	c.reset(out, newAttribIndex(pool), cfg)
	c.document(text, ops)
	c.reset(nil, attribIndex{}, convertConfig{})
	converterPool.Put(c)
	return nil
}

// converter walks a document line by line. Each line's terminator is
// written when the next line starts so a closing code fence can still be
// placed in front of it.
type converter struct {
	out    *bytes.Buffer
	body   bytes.Buffer
	idx    attribIndex
	cfg    convertConfig
	inline inlineRenderer
	debug  bool
}

func (c *converter) reset(out *bytes.Buffer, idx attribIndex, cfg convertConfig) {
	c.out = out
	c.body.Reset()
	c.idx = idx
	c.cfg = cfg
	c.inline = inlineRenderer{idx: idx}
	c.debug = cfg.logger != nil && cfg.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (c *converter) document(text []uint16, ops []changeset.Op) {
	if c.cfg.banner {
		c.out.WriteString(Banner)
	}
	var state lineState
	for i, line := range splitLines(text, ops, c.idx) {
		frame := frameLine(c.idx.headingOf(line.Ops), state)
		if i > 0 {
			if frame.closeFence {
				c.out.WriteString(codeFence.End)
			}
			c.out.WriteByte('\n')
		}
		c.line(line, frame)
		if c.debug {
			c.cfg.logger.Debug("line rendered",
				"line", i+1,
				"class", frame.class.String(),
				"list", line.ListKind.String(),
				"level", line.ListLevel,
				"preview", preview(c.body.String(), previewWidth))
		}
		state = frame.next
	}
	if state.insideCode {
		c.out.WriteString(codeFence.End)
	}
	c.out.WriteByte('\n')
}

// line renders the content of one line, then writes it behind its list
// prefix. Empty content gets no prefix.
func (c *converter) line(line Line, frame lineFrame) {
	c.body.Reset()
	if frame.openFence {
		c.body.WriteString(codeFence.Start)
	}
	level := frame.class.level()
	if level > 0 {
		c.body.WriteString(headingTags[level-1].Start)
	}
	c.inline.renderLine(&c.body, line.Text, line.Ops, frame.stripsMarker(c.cfg))
	if level > 0 {
		c.body.WriteString(headingTags[level-1].End)
	}
	if c.body.Len() > 0 {
		c.out.WriteString(listPrefix(line.ListLevel, line.ListKind))
	}
	c.out.Write(c.body.Bytes())
}

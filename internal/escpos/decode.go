package escpos

import (
	"fmt"
	"strings"
)

// Line is one printed line with the style in effect when its first
// character was printed.
type Line struct {
	Text   string
	Align  Alignment
	Bold   bool
	Mode   PrintMode
	Raster bool // placeholder for a bit image
}

// Segment is everything printed between two cuts.
type Segment struct {
	Lines []Line
	Cut   bool
}

// Text joins the segment's lines with newlines.
func (s Segment) Text() string {
	parts := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Document is a decoded print job.
type Document struct {
	Initialized bool // job starts with ESC @
	Segments    []Segment
}

// Cuts counts the segments that end with a paper cut.
func (d Document) Cuts() int {
	n := 0
	for _, s := range d.Segments {
		if s.Cut {
			n++
		}
	}
	return n
}

type decoder struct {
	data []byte
	pos  int

	page  CodePage
	align Alignment
	bold  bool
	mode  PrintMode

	text    []byte
	started bool
	current Line

	doc Document
	seg Segment
}

// Decode reads back the command subset Builder writes. Text is decoded with
// the table selected by ESC t (UTF-8 until one is selected).
func Decode(data []byte) (Document, error) {
	d := &decoder{data: data, page: UTF8}
	d.doc.Initialized = len(data) >= 2 && data[0] == ESC && data[1] == '@'
	if err := d.run(); err != nil {
		return Document{}, err
	}
	d.flushLine(false)
	if len(d.seg.Lines) > 0 {
		d.doc.Segments = append(d.doc.Segments, d.seg)
	}
	return d.doc, nil
}

func (d *decoder) run() error {
	for d.pos < len(d.data) {
		c := d.data[d.pos]
		d.pos++
		switch c {
		case LF:
			d.flushLine(true)
		case ESC:
			if err := d.esc(); err != nil {
				return err
			}
		case GS:
			if err := d.gs(); err != nil {
				return err
			}
		default:
			d.startLine()
			d.text = append(d.text, c)
		}
	}
	return nil
}

func (d *decoder) arg() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("truncated command at byte %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) esc() error {
	op, err := d.arg()
	if err != nil {
		return err
	}
	switch op {
	case '@':
		d.align, d.bold, d.mode = AlignLeft, false, ModeNormal
		return nil
	case 'd':
		n, err := d.arg()
		if err != nil {
			return err
		}
		for i := 0; i < int(n); i++ {
			d.flushLine(true)
		}
		return nil
	}

	n, err := d.arg()
	if err != nil {
		return err
	}
	switch op {
	case 'a':
		d.align = Alignment(n)
	case 'E':
		d.bold = n&1 == 1
	case '!':
		d.mode = PrintMode(n & 0x30)
	case 't':
		if n == CP858.table {
			d.page = CP858
		} else {
			d.page = UTF8
		}
	case '-', 'M':
		// underline and font select carry no layout we render
	default:
		return fmt.Errorf("unsupported command ESC 0x%02x", op)
	}
	return nil
}

func (d *decoder) gs() error {
	op, err := d.arg()
	if err != nil {
		return err
	}
	switch op {
	case 'V':
		m, err := d.arg()
		if err != nil {
			return err
		}
		if m == 'A' || m == 'B' {
			if _, err := d.arg(); err != nil {
				return err
			}
		}
		d.flushLine(false)
		d.seg.Cut = true
		d.doc.Segments = append(d.doc.Segments, d.seg)
		d.seg = Segment{}
		return nil
	case 'v':
		if d.pos+6 > len(d.data) {
			return fmt.Errorf("truncated raster header at byte %d", d.pos)
		}
		hdr := d.data[d.pos : d.pos+6]
		rowBytes := int(hdr[2]) | int(hdr[3])<<8
		height := int(hdr[4]) | int(hdr[5])<<8
		d.pos += 6
		size := rowBytes * height
		if d.pos+size > len(d.data) {
			return fmt.Errorf("truncated raster data at byte %d", d.pos)
		}
		d.pos += size
		d.flushLine(false)
		d.seg.Lines = append(d.seg.Lines, Line{
			Text:   fmt.Sprintf("[image %dx%d]", rowBytes*8, height),
			Align:  d.align,
			Raster: true,
		})
		return nil
	}
	return fmt.Errorf("unsupported command GS 0x%02x", op)
}

func (d *decoder) startLine() {
	if d.started {
		return
	}
	d.started = true
	d.current = Line{Align: d.align, Bold: d.bold, Mode: d.mode}
}

// flushLine ends the current line. A bare feed with nothing printed still
// produces an empty line when force is set.
func (d *decoder) flushLine(force bool) {
	if !d.started && !force {
		return
	}
	d.startLine()
	d.current.Text = d.page.Decode(d.text)
	d.seg.Lines = append(d.seg.Lines, d.current)
	d.text = d.text[:0]
	d.started = false
}

package escpos

import (
	"bytes"
	"image"
)

// Builder appends ESC/POS commands and encoded text to an in-memory buffer.
// The zero value writes UTF-8 text; use NewBuilder to pick a code page.
type Builder struct {
	buf  bytes.Buffer
	page CodePage
}

func NewBuilder(page CodePage) *Builder {
	return &Builder{page: page}
}

// Init resets the printer and selects the builder's character table.
func (b *Builder) Init() {
	b.buf.Write(cmdInit)
	if b.page.cmap != nil {
		b.buf.Write(cmdCodeTable)
		b.buf.WriteByte(b.page.table)
	}
}

func (b *Builder) Align(a Alignment) {
	b.buf.Write(cmdAlign)
	b.buf.WriteByte(byte(a))
}

func (b *Builder) Bold(on bool) {
	b.buf.Write(cmdBold)
	if on {
		b.buf.WriteByte(1)
	} else {
		b.buf.WriteByte(0)
	}
}

func (b *Builder) Mode(m PrintMode) {
	b.buf.Write(cmdMode)
	b.buf.WriteByte(byte(m))
}

// Text writes s without a line feed.
func (b *Builder) Text(s string) {
	b.buf.Write(b.page.Encode(s))
}

// Line writes s as one line followed by a line feed.
func (b *Builder) Line(s string) {
	b.Text(SingleLine(s))
	b.buf.WriteByte(LF)
}

// Feed emits n bare line feeds.
func (b *Builder) Feed(n int) {
	for i := 0; i < n; i++ {
		b.buf.WriteByte(LF)
	}
}

// FeedLines asks the printer to advance n lines in a single command.
func (b *Builder) FeedLines(n byte) {
	b.buf.Write(cmdFeedLines)
	b.buf.WriteByte(n)
}

func (b *Builder) Cut(c CutMode) {
	b.buf.Write(cmdCut)
	b.buf.WriteByte(byte(c))
}

// Image prints img as a raster bit image no wider than maxDots.
func (b *Builder) Image(img image.Image, maxDots int) {
	b.buf.Write(Raster(img, maxDots))
	b.buf.WriteByte(LF)
}

// Raw appends bytes as they are.
func (b *Builder) Raw(p []byte) {
	b.buf.Write(p)
}

func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns a copy of everything written so far.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Package escpos holds the ESC/POS command subset used for receipts on 80mm
// and 58mm thermal printers, a builder that emits it and a decoder that reads
// it back.
package escpos

const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Alignment is the ESC a argument.
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// PrintMode is the ESC ! argument.
type PrintMode byte

const (
	ModeNormal       PrintMode = 0x00
	ModeDoubleHeight PrintMode = 0x10
	ModeDoubleWidth  PrintMode = 0x20
	ModeDoubleSize   PrintMode = 0x30
)

// CutMode is the GS V function.
type CutMode byte

const (
	CutFull    CutMode = 0x00
	CutPartial CutMode = 0x01
)

var (
	cmdInit      = []byte{ESC, '@'}
	cmdCodeTable = []byte{ESC, 't'}
	cmdAlign     = []byte{ESC, 'a'}
	cmdBold      = []byte{ESC, 'E'}
	cmdMode      = []byte{ESC, '!'}
	cmdFeedLines = []byte{ESC, 'd'}
	cmdCut       = []byte{GS, 'V'}
	cmdRaster    = []byte{GS, 'v', '0', 0x00}
)

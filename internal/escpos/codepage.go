package escpos

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// CodePage selects how text is turned into printer bytes.
type CodePage struct {
	name  string
	table byte             // ESC t argument
	cmap  *charmap.Charmap // nil means UTF-8 passthrough
}

var (
	// CP858 is PC858 (Latin-1 with the euro sign), table 19 on Epson-style firmware.
	CP858 = CodePage{name: "cp858", table: 19, cmap: charmap.CodePage858}
	// UTF8 sends text bytes untouched and never selects a table.
	UTF8 = CodePage{name: "utf8"}
)

// ParseCodePage resolves a configured code page name.
func ParseCodePage(name string) (CodePage, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cp858", "pc858":
		return CP858, nil
	case "utf8", "utf-8":
		return UTF8, nil
	}
	return CodePage{}, fmt.Errorf("unknown code page %q", name)
}

func (c CodePage) String() string { return c.name }

// Encode converts s to printer bytes. Runes the table cannot represent become
// '?'. Control characters other than line feed become a space so text can
// never carry a printer command.
func (c CodePage) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if isControl(r) {
			out = append(out, ' ')
			continue
		}
		if c.cmap == nil {
			out = utf8.AppendRune(out, r)
			continue
		}
		b, ok := c.cmap.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func isControl(r rune) bool {
	return (r < 0x20 && r != '\n') || r == 0x7F || (r >= 0x80 && r < 0xA0)
}

// SingleLine replaces line breaks in s with spaces.
func SingleLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}

// Decode is the inverse of Encode for display purposes.
func (c CodePage) Decode(p []byte) string {
	if c.cmap == nil {
		return string(p)
	}
	var sb strings.Builder
	for _, b := range p {
		sb.WriteRune(c.cmap.DecodeByte(b))
	}
	return sb.String()
}

// Width is the number of printed columns s occupies.
func Width(s string) int {
	return utf8.RuneCountInString(s)
}

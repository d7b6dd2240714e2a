// Package preview renders compiled receipts for people: an HTML page that
// mimics the paper roll and a PNG snapshot of it taken with headless Chrome.
package preview

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Riboost-Studio/print-station/internal/escpos"
)

//go:embed templates/receipt.html
var templates embed.FS

var receiptTmpl = template.Must(template.ParseFS(templates, "templates/receipt.html"))

type lineView struct {
	Text  string
	Class string
}

type segmentView struct {
	Lines []lineView
	Cut   bool
}

type pageView struct {
	Title    string
	Columns  int
	Segments []segmentView
}

// HTML decodes an ESC/POS job and renders it as a page columns wide.
func HTML(data []byte, title string, columns int) ([]byte, error) {
	doc, err := escpos.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return Render(doc, title, columns)
}

// Render lays out an already decoded document.
func Render(doc escpos.Document, title string, columns int) ([]byte, error) {
	view := pageView{Title: title, Columns: columns + 2}
	for _, seg := range doc.Segments {
		sv := segmentView{Cut: seg.Cut}
		for _, l := range seg.Lines {
			sv.Lines = append(sv.Lines, lineView{Text: l.Text, Class: lineClass(l)})
		}
		view.Segments = append(view.Segments, sv)
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func lineClass(l escpos.Line) string {
	classes := []string{"line"}
	switch l.Align {
	case escpos.AlignCenter:
		classes = append(classes, "center")
	case escpos.AlignRight:
		classes = append(classes, "right")
	}
	if l.Bold {
		classes = append(classes, "bold")
	}
	if l.Mode&escpos.ModeDoubleHeight != 0 {
		classes = append(classes, "dh")
	}
	if l.Mode&escpos.ModeDoubleWidth != 0 {
		classes = append(classes, "dw")
	}
	if l.Raster {
		classes = append(classes, "raster")
	}
	return strings.Join(classes, " ")
}

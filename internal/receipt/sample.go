package receipt

import (
	"time"

	"github.com/Riboost-Studio/print-station/internal/escpos"
	"github.com/Riboost-Studio/print-station/internal/model"
)

// SampleOrderID marks the synthetic order used by test prints. No store holds it.
const SampleOrderID = "test-print"

// SampleOrder is a representative order touching three preparation lines.
func SampleOrder(station string, now time.Time) model.Order {
	items := []model.Item{
		{ID: "pizza-margherita", Name: "Pizza Margherita", Quantity: 2, Price: model.MustMoney("6.00"), PreparationLine: "SALATO"},
		{ID: "coca-cola", Name: "Coca Cola", Quantity: 2, Price: model.MustMoney("2.50"), PreparationLine: "BAR"},
		{ID: "tiramisu", Name: "Tiramisù", Quantity: 1, Price: model.MustMoney("4.50"), PreparationLine: "DOLCE"},
		{ID: "panino-porchetta", Name: "Panino Porchetta", Quantity: 1, Price: model.MustMoney("7.00"), PreparationLine: "SALATO"},
	}
	total := model.Money{}
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return model.Order{
		ID:             SampleOrderID,
		CustomerNumber: 42,
		Station:        station,
		Items:          items,
		Total:          total,
		Status:         model.OrderPending,
		CreatedAt:      now,
	}
}

// TextOptions style a plain diagnostics print.
type TextOptions struct {
	Centered   bool `json:"centered"`
	Bold       bool `json:"bold"`
	DoubleSize bool `json:"doubleSize"`
	NoCut      bool `json:"noCut"`
}

// CompileText wraps free text in a reset, the requested style and a cut.
func (c *Compiler) CompileText(text string, opts TextOptions) []byte {
	b := escpos.NewBuilder(c.opts.CodePage)
	b.Init()
	if opts.Centered {
		b.Align(escpos.AlignCenter)
	}
	if opts.Bold {
		b.Bold(true)
	}
	if opts.DoubleSize {
		b.Mode(escpos.ModeDoubleSize)
	}
	b.Text(text)
	if len(text) == 0 || text[len(text)-1] != '\n' {
		b.Feed(1)
	}
	b.Mode(escpos.ModeNormal)
	b.Bold(false)
	b.Align(escpos.AlignLeft)
	if !opts.NoCut {
		b.Feed(3)
		b.Cut(escpos.CutFull)
	}
	return b.Bytes()
}

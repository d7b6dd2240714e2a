package receipt

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/Riboost-Studio/print-station/internal/escpos"
)

// Options are the layout inputs of the compiler. Column width, currency and
// separators are configuration, never constants.
type Options struct {
	Width             int    // printable columns at normal size
	Currency          string // prefix of every amount, e.g. "EUR"
	Title             string
	Footer            string // pickup message; empty skips the line
	SeparatorChar     string
	ItemSeparatorChar string

	// LineCuts appends one cut segment per preparation line.
	LineCuts bool

	CodePage escpos.CodePage
	Location *time.Location // time zone of the printed timestamp

	Logo     image.Image // optional, printed under the reset sequence
	LogoDots int         // max logo width in dots
}

// DefaultOptions matches an 80mm roll.
func DefaultOptions() Options {
	return Options{
		Width:             48,
		Currency:          "EUR",
		Title:             "FESTA DELLA PARROCCHIA",
		Footer:            "Ritira alle cucine indicate",
		SeparatorChar:     "=",
		ItemSeparatorChar: "-",
		LineCuts:          true,
		CodePage:          escpos.CP858,
		Location:          time.Local,
		LogoDots:          escpos.Dots80mm,
	}
}

func (o Options) validate() error {
	var errs []error
	if o.Width < 8 || o.Width > 255 {
		errs = append(errs, fmt.Errorf("width %d out of range 8..255", o.Width))
	}
	// the currency prefix, a space and "0.00" must fit on a price line
	if escpos.Width(o.Currency)+5 >= o.Width {
		errs = append(errs, fmt.Errorf("currency %q does not fit a %d column line", o.Currency, o.Width))
	}
	if escpos.Width(o.SeparatorChar) == 0 {
		errs = append(errs, errors.New("separator char is required"))
	}
	if escpos.Width(o.ItemSeparatorChar) == 0 {
		errs = append(errs, errors.New("item separator char is required"))
	}
	return errors.Join(errs...)
}

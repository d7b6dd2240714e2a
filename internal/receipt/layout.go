package receipt

import (
	"strings"

	"github.com/Riboost-Studio/print-station/internal/escpos"
)

const ellipsis = "..."

// PriceLine right-justifies price in a line of width columns. A description
// that does not fit is cut and ends in an ellipsis. A price wider than the
// line drops its currency prefix, and the amount keeps its rightmost
// columns; the result never exceeds width.
func PriceLine(description, price string, width int) string {
	priceWidth := escpos.Width(price)
	if priceWidth > width {
		if i := strings.LastIndexByte(price, ' '); i >= 0 {
			return PriceLine(description, price[i+1:], width)
		}
		runes := []rune(price)
		return string(runes[len(runes)-width:])
	}
	descWidth := escpos.Width(description)

	if descWidth+priceWidth < width {
		return description + strings.Repeat(" ", width-descWidth-priceWidth) + price
	}

	// room left for the description once the price and one space are placed
	maxDesc := width - priceWidth - 1
	if maxDesc <= 0 {
		return price
	}
	return truncate(description, maxDesc) + " " + price
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return ellipsis[:max]
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// separator repeats the first rune of char across the full width.
func separator(char string, width int) string {
	r := []rune(char)
	return strings.Repeat(string(r[0]), width)
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit tags the scale an amount is expressed in on the wire.
type Unit string

const (
	UnitMajor Unit = "major" // 3.50
	UnitMinor Unit = "minor" // 350
)

// Money is an amount in major currency units.
//
// On the wire a bare number or numeric string is read as major units. Amounts
// in minor units must say so explicitly: {"value": 350, "unit": "minor"}.
type Money struct {
	decimal.Decimal
}

// NewMoney parses s as major units.
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{d}, nil
}

// MustMoney is NewMoney for literals.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMinor converts an amount in minor units (cents).
func FromMinor(cents int64) Money {
	return Money{decimal.New(cents, -2)}
}

// Mul returns m multiplied by an integer quantity.
func (m Money) Mul(qty int) Money {
	return Money{m.Decimal.Mul(decimal.NewFromInt(int64(qty)))}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{m.Decimal.Add(o.Decimal)}
}

// Fixed renders the amount with two decimals.
func (m Money) Fixed() string {
	return m.Decimal.StringFixed(2)
}

type taggedMoney struct {
	Value json.RawMessage `json:"value"`
	Unit  Unit            `json:"unit"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	if data[0] != '{' {
		d, err := parseDecimal(data)
		if err != nil {
			return err
		}
		*m = Money{d}
		return nil
	}

	var tagged taggedMoney
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	d, err := parseDecimal(tagged.Value)
	if err != nil {
		return err
	}
	switch tagged.Unit {
	case UnitMajor, "":
		*m = Money{d}
	case UnitMinor:
		*m = Money{d.Shift(-2)}
	default:
		return fmt.Errorf("decode money: unknown unit %q", tagged.Unit)
	}
	return nil
}

func parseDecimal(raw []byte) (decimal.Decimal, error) {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode money %q: %w", s, err)
	}
	return d, nil
}

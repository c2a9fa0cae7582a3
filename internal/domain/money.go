package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in euro cents.
//
// On the wire it is a decimal number of euros. Decoding also accepts decimal
// strings ("12.50"), which is how the API serializes prices and totals.
type Money int64

// Arithmetic saturates at MaxMoney and MinMoney instead of wrapping.
const (
	MaxMoney Money = math.MaxInt64
	MinMoney Money = -math.MaxInt64
)

var errMoneyRange = errors.New("amount out of range")

// ParseMoney parses a decimal euro amount such as "899.99" or "12.5".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	v, err := fromEuros(f)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return v, nil
}

// fromEuros rejects NaN, infinities and amounts whose cents do not fit in an
// int64. float64(math.MaxInt64) rounds up to 2^63, hence >=.
func fromEuros(f float64) (Money, error) {
	cents := math.Round(f * 100)
	if math.IsNaN(cents) || cents >= math.MaxInt64 || cents <= -math.MaxInt64 {
		return 0, errMoneyRange
	}
	return Money(cents), nil
}

// Euros returns the amount as a float number of euros.
func (m Money) Euros() float64 {
	return float64(m) / 100
}

// Times multiplies the amount by a quantity.
func (m Money) Times(quantity int) Money {
	if m == 0 || quantity == 0 {
		return 0
	}
	q := Money(quantity)
	p := m * q
	if p/q != m || p < MinMoney {
		if (m < 0) != (q < 0) {
			return MinMoney
		}
		return MaxMoney
	}
	return p
}

// Plus adds two amounts.
func (m Money) Plus(o Money) Money {
	switch {
	case o > 0 && m > MaxMoney-o:
		return MaxMoney
	case o < 0 && m < MinMoney-o:
		return MinMoney
	}
	return m + o
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Euros(), 'f', -1, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse money %s: %w", data, err)
	}
	v, err := fromEuros(f)
	if err != nil {
		return fmt.Errorf("parse money %s: %w", data, err)
	}
	*m = v
	return nil
}

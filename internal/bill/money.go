package bill

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// Money is an amount in euro cents
type Money int64

// ParseMoney converts a decimal string ("348", "12.34" or "12,34") to cents.
// The third fractional digit is rounded half-up. Negative values are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	if iv > (math.MaxInt64-frac)/100 {
		return 0, ErrInvalidAmount
	}
	return Money(iv*100 + frac), nil
}

// String formats the amount the way the bills table shows it, e.g. "348,50 €"
func (m Money) String() string {
	cents := int64(m)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d €", sign, cents/100, cents%100)
}

// DateLayout is the wire format of bill dates
const DateLayout = "2006-01-02"

// inputLayouts are the formats accepted from forms and scanners
var inputLayouts = []string{DateLayout, "02/01/2006", "2006/01/02", "02-01-2006"}

// Date is a calendar date. A date read back from storage that does not parse
// keeps its raw text so it can still be displayed.
type Date struct {
	time.Time
	Raw string
}

// NewDate builds a Date for the given calendar day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in any of the accepted input formats
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Valid reports whether the date holds a real calendar day
func (d Date) Valid() bool {
	return !d.Time.IsZero()
}

// String returns the wire representation, or the raw text for unparsable dates
func (d Date) String() string {
	if !d.Valid() {
		return d.Raw
	}
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{Raw: s}
		return nil
	}
	*d = parsed
	return nil
}

// Package cpf validates Brazilian individual taxpayer numbers.
package cpf

import (
	"errors"
	"strings"
)

// Length is the number of digits of a normalized CPF.
const Length = 11

// ErrInvalid is returned by Validate for any input that is not a valid CPF.
var ErrInvalid = errors.New("invalid cpf")

// Normalize strips every non-digit character.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Valid reports whether s holds a CPF with correct check digits. Formatting
// punctuation is ignored.
func Valid(s string) bool {
	digits := Normalize(s)
	if len(digits) != Length || repeated(digits) {
		return false
	}

	d := make([]int, Length)
	for i := 0; i < Length; i++ {
		d[i] = int(digits[i] - '0')
	}
	return checkDigit(d[:9], 10) == d[9] && checkDigit(d[:10], 11) == d[10]
}

// Validate is the error-returning form of Valid.
func Validate(s string) error {
	if !Valid(s) {
		return ErrInvalid
	}
	return nil
}

// Format renders a valid CPF as 000.000.000-00. Invalid input is returned as given.
func Format(s string) string {
	if !Valid(s) {
		return s
	}
	d := Normalize(s)
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Redact keeps only the last five digits of a valid CPF, as ***.***.447-05,
// for use in log fields. Anything else is fully masked.
func Redact(s string) string {
	if !Valid(s) {
		return "***"
	}
	return "***.***" + Format(s)[7:]
}

// checkDigit weighs digits from firstWeight down to 2.
func checkDigit(digits []int, firstWeight int) int {
	sum := 0
	for i, v := range digits {
		sum += v * (firstWeight - i)
	}
	return (sum * 10 % 11) % 10
}

func repeated(digits string) bool {
	return strings.Count(digits, digits[:1]) == len(digits)
}

package isbn

import "strings"

// bookland is the EAN prefix assigned to books; every ISBN-10 converts into
// this range.
const bookland = "978"

// Normalize strips hyphens and spaces from an ISBN in any of the formats the
// lookup sources return.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsISBN13 reports whether the normalized value has ISBN-13 shape:
// thirteen digits.
func IsISBN13(value string) bool {
	v := Normalize(value)
	if len(v) != 13 {
		return false
	}
	return allDigits(v)
}

// IsISBN10 reports whether the normalized value has ISBN-10 shape: nine
// digits followed by a digit or X check character.
func IsISBN10(value string) bool {
	v := Normalize(value)
	if len(v) != 10 {
		return false
	}
	if !allDigits(v[:9]) {
		return false
	}
	last := v[9]
	return isDigit(last) || last == 'X' || last == 'x'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// HasBookPrefix reports whether the value starts with the canonical 978
// registrant prefix.
func HasBookPrefix(value string) bool {
	return strings.HasPrefix(Normalize(value), bookland)
}

// ConvertISBN10To13 converts an ISBN-10 into its ISBN-13 form: prefix the
// first nine digits with 978 and append a freshly computed EAN-13 check
// digit (alternating weights 1 and 3, check = (10 - sum mod 10) mod 10).
// Input that does not have ISBN-10 shape is returned unchanged.
func ConvertISBN10To13(isbn10 string) string {
	cleaned := Normalize(isbn10)
	if !IsISBN10(cleaned) {
		return isbn10
	}

	base := bookland + cleaned[:9]

	sum := 0
	for i, digit := range base {
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(digit-'0') * weight
	}
	check := (10 - sum%10) % 10

	return base + string(rune('0'+check))
}

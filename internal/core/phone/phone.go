// Package phone normalizes telephone input the way the enrollment form
// masks it: digits only, at most ten of them.
package phone

import (
	"fmt"
	"strings"
)

// MaxDigits is the length of a North American number without country code.
const MaxDigits = 10

// Mask strips every non-digit from value and truncates the result to
// MaxDigits.
func Mask(value string) string {
	var b strings.Builder
	b.Grow(MaxDigits)
	for _, r := range value {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == MaxDigits {
			break
		}
	}
	return b.String()
}

// Display formats a complete number as (555) 123-4567. Anything that does
// not mask to exactly ten digits is returned unchanged.
func Display(value string) string {
	digits := Mask(value)
	if len(digits) != MaxDigits {
		return value
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

// Complete reports whether value masks to a full number.
func Complete(value string) bool {
	return len(Mask(value)) == MaxDigits
}

package pricing

import (
	"fmt"
	"strings"
)

// Money is an amount in minor currency units (kopecks).
type Money int64

// Ruble is one whole currency unit.
const Ruble Money = 100

// Rubles converts whole rubles to Money.
func Rubles(n int64) Money {
	return Money(n) * Ruble
}

// String formats the amount as "1 500 ₽" or "1 500.50 ₽".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := groupThousands(v / int64(Ruble))
	if frac := v % int64(Ruble); frac != 0 {
		return fmt.Sprintf("%s%s.%02d ₽", sign, whole, frac)
	}
	return fmt.Sprintf("%s%s ₽", sign, whole)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

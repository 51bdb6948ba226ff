package statement

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	keyPrefix         = "rev_"
	descPrefixLength  = 16
	missingBalanceKey = "nobal"
)

var hundred = decimal.NewFromInt(100)

// ExternalKey derives the dedup key of a statement row from its completion
// timestamp, amount, running balance and description. The same source row
// always yields the same key, whichever export it appears in.
func ExternalKey(at time.Time, amount decimal.Decimal, balance *decimal.Decimal, description string) string {
	bal := missingBalanceKey
	if balance != nil {
		bal = fmt.Sprint(cents(*balance))
	}
	return fmt.Sprintf("%s%d_%d_%s_%s", keyPrefix, at.UnixMilli(), cents(amount), bal, descPrefix(description))
}

func cents(d decimal.Decimal) int64 {
	return d.Abs().Mul(hundred).Round(0).IntPart()
}

func descPrefix(description string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, description)
	runes := []rune(clean)
	if len(runes) > descPrefixLength {
		runes = runes[:descPrefixLength]
	}
	return string(runes)
}

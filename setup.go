package raffle

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ParseNames splits one name per line, trimming blanks and dropping empty lines
func ParseNames(text string) []string {
	lines := strings.Split(text, "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// DefaultPrizeTemplate returns the prefilled prize rows for n names: Any
// prizes at 500, one Late(1) at 1000 when n >= 3 and the Final at 2000.
// The template always holds n rows; with two names the second row is an Any.
func DefaultPrizeTemplate(n int) []RawPrize {
	if n < MinNames {
		return nil
	}

	rows := make([]RawPrize, 0, n)
	countAny := n - 2
	if n < 3 {
		countAny = n - 1
	}
	for i := 0; i < countAny; i++ {
		rows = append(rows, RawPrize{Amount: DefaultAnyAmount, When: RuleAny.String()})
	}
	if n >= 3 {
		rows = append(rows, RawPrize{Amount: DefaultLateAmount, When: RuleLate(1).String()})
	}
	return append(rows, RawPrize{Amount: DefaultFinalAmount, When: RuleFinal.String()})
}

// PrizeHint is the guidance shown while configuring prizes for n names
func PrizeHint(n int) string {
	if n < MinNames {
		return fmt.Sprintf("Enter at least %d names to configure rounds.", MinNames)
	}
	return fmt.Sprintf("You have %d names. You may assign up to one Late prize for each of N-1…N-%d, exactly one Final (N), and the rest as Any.",
		n, MaxLateOffset)
}

var pesoPrinter = message.NewPrinter(language.English)

// FormatPeso renders an amount with a peso sign and thousands separators
func FormatPeso(amount decimal.Decimal) string {
	value, _ := amount.Float64()
	return "₱" + pesoPrinter.Sprintf("%v", number.Decimal(value, number.MaxFractionDigits(2)))
}

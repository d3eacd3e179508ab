package anomaly

import (
	"fmt"
	"math"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// Explain describes why tx stands out against all, the set it was scored with.
// The amount-to-average ratio picks the wording; the largest expense and an
// unusual pattern are the fallbacks.
func Explain(tx domain.Transaction, all []domain.Transaction) string {
	amounts := values(all)
	avg := mean(amounts)
	maxAmount := math.Inf(-1)
	for _, a := range amounts {
		maxAmount = math.Max(maxAmount, a)
	}

	amount := tx.Value()
	name := tx.CategoryName

	if avg > 0 {
		ratio := amount / avg
		switch {
		case ratio > 3:
			return squash(fmt.Sprintf("This expense is %.1fx higher than your average %s spending.", ratio, name))
		case ratio > 1.5:
			return squash(fmt.Sprintf("This expense is significantly higher than your typical %s transactions.", name))
		}
	}
	if amount == maxAmount {
		return squash(fmt.Sprintf("This is your largest recorded expense in the %s category.", name))
	}
	return squash(fmt.Sprintf("This %s expense has an unusual pattern (timing, amount, or frequency) compared to your typical spending.", name))
}

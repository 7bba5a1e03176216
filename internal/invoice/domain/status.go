package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NextStatus rolls the lifecycle forward from current given the money
// state of the invoice. Cancelled and void are terminal and pass through
// untouched. The returned status never moves a paid invoice backwards;
// callers stamp PaidAt on the first transition into paid.
func NextStatus(current Status, balance, total, amountPaid decimal.Decimal, sentAt, dueDate *time.Time, now time.Time) Status {
	if current.Terminal() {
		return current
	}

	next := current
	switch {
	case balance.Sign() <= 0 && amountPaid.Sign() > 0:
		next = StatusPaid
	case balance.Sign() > 0 && balance.LessThan(total):
		next = StatusPartial
	case balance.Equal(total):
		if sentAt != nil {
			next = StatusSent
		} else {
			next = StatusDraft
		}
	}

	if (next == StatusSent || next == StatusPartial) && dueDate != nil && now.After(*dueDate) {
		next = StatusOverdue
	}

	return next
}

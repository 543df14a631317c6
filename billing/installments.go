/*
Package billing implements installment generation and settlement for
purchase and sale transactions.

PURPOSE:
  A transaction's total is partitioned once, at creation time, into equal
  installments on a fixed 30-day cadence. Settlement is a small state
  machine driven by explicit actions (pay, cancel); "overdue" is a
  read-time projection of a pending installment past its due date and is
  never written to the store.

REMAINDER POLICY:
  total/count is rounded to 2 decimal places; the rounding remainder is
  folded into the last installment so the installment amounts always sum to
  the total exactly. There is no drift to leak.

SEE ALSO:
  - service.go: the atomic creation unit and settlement transitions
  - herd/billing.go: the persisted record types
*/
package billing

import (
	"fmt"

	"github.com/warp/herd-engine/herd"
)

// DueCadenceDays is the fixed spacing of installment due dates, regardless
// of calendar month length.
const DueCadenceDays = 30

// =============================================================================
// GENERATOR - Pure partition of a total into installments
// =============================================================================

// GenerateInstallments partitions total into count equal installments with
// due dates at negotiated + 30, +60, ... days, all pending. IDs and the
// owning transaction are assigned by the caller when the batch is
// persisted.
//
// The sum of the returned amounts equals total exactly: the division is
// rounded to cents and the remainder lands on the last installment.
func GenerateInstallments(total herd.Money, count int, negotiated herd.Date) ([]herd.Installment, error) {
	if count < 1 {
		return nil, fmt.Errorf("installment count %d: %w", count, herd.ErrInvalidArgument)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("total amount %s: %w", total, herd.ErrInvalidArgument)
	}
	if negotiated.IsZero() {
		return nil, fmt.Errorf("negotiation date required: %w", herd.ErrInvalidArgument)
	}

	per := total.DivRound(count)
	last := total.Sub(per.MulInt(count - 1))

	out := make([]herd.Installment, count)
	for i := range out {
		amount := per
		if i == count-1 {
			amount = last
		}
		out[i] = herd.Installment{
			Number: i + 1,
			DueOn:  negotiated.AddDays((i + 1) * DueCadenceDays),
			Amount: amount,
			Status: herd.InstallmentPending,
		}
	}
	return out, nil
}

// =============================================================================
// OVERDUE PROJECTION - Derived at read time, never stored
// =============================================================================

// EffectiveStatus presents a pending installment whose due date is strictly
// before today as overdue. The persisted status stays pending until an
// explicit action changes it.
func EffectiveStatus(in herd.Installment, today herd.Date) herd.InstallmentStatus {
	if in.Status == herd.InstallmentPending && in.DueOn.Before(today) {
		return herd.InstallmentOverdue
	}
	return in.Status
}

package domain

import "time"

// Inputs are the explicit aggregation inputs. Everything status derivation
// needs is here; Compute touches no shared state.
type Inputs struct {
	Expected            int64
	CollectedTuition    int64
	CollectedAdditional int64
	PendingDueDates     []time.Time
	Now                 time.Time
}

// Compute derives the financial snapshot. Status rules apply in order:
// not_paid, fully_paid, overdue, partially_paid, pending. The ordering is
// load-bearing: overdue is computed from currently pending items only, so a
// settled history never resurfaces as overdue once the due amount reaches
// zero.
func Compute(in Inputs) FinancialSnapshot {
	totalDue := in.Expected - in.CollectedTuition
	if totalDue < 0 {
		totalDue = 0
	}

	var nextDue *time.Time
	overdue := 0
	for _, due := range in.PendingDueDates {
		due := due
		if nextDue == nil || due.Before(*nextDue) {
			nextDue = &due
		}
		if due.Before(in.Now) {
			overdue++
		}
	}

	snapshot := FinancialSnapshot{
		Expected:            in.Expected,
		CollectedTuition:    in.CollectedTuition,
		CollectedAdditional: in.CollectedAdditional,
		TotalDue:            totalDue,
		NextDueDate:         nextDue,
		OverdueCount:        overdue,
		ComputedAt:          in.Now,
	}

	switch {
	case in.CollectedTuition == 0 && in.CollectedAdditional == 0:
		snapshot.Status = StateNotPaid
	case totalDue == 0:
		snapshot.Status = StateFullyPaid
	case overdue > 0:
		snapshot.Status = StateOverdue
	case in.CollectedTuition > 0 && totalDue > 0:
		snapshot.Status = StatePartiallyPaid
	default:
		snapshot.Status = StatePending
	}

	return snapshot
}

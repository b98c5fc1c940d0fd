package domain

import "time"

// ScheduleParams are the inputs of the schedule generator.
type ScheduleParams struct {
	TotalAmount      int64
	InstallmentCount int
	StartDate        time.Time
	EndDate          time.Time
}

// ScheduleLine is one generated due obligation before persistence.
type ScheduleLine struct {
	Seq     int
	DueDate time.Time
	Amount  int64
}

// BuildSchedule produces the ordered installment schedule for a plan. Amounts
// split evenly; the last line absorbs the rounding remainder so the sum equals
// TotalAmount exactly. Due dates advance one month per installment from the
// start date.
func BuildSchedule(p ScheduleParams) ([]ScheduleLine, error) {
	if p.TotalAmount <= 0 || p.InstallmentCount <= 0 {
		return nil, ErrInvalidPlanParameters
	}
	if !p.EndDate.After(p.StartDate) {
		return nil, ErrInvalidPlanParameters
	}

	base := p.TotalAmount / int64(p.InstallmentCount)
	remainder := p.TotalAmount - base*int64(p.InstallmentCount)

	lines := make([]ScheduleLine, 0, p.InstallmentCount)
	for i := 0; i < p.InstallmentCount; i++ {
		amount := base
		if i == p.InstallmentCount-1 {
			amount += remainder
		}
		lines = append(lines, ScheduleLine{
			Seq:     i + 1,
			DueDate: p.StartDate.AddDate(0, i, 0),
			Amount:  amount,
		})
	}

	return lines, nil
}

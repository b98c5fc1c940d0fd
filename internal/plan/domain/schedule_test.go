package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScheduleEvenSplit(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	lines, err := BuildSchedule(ScheduleParams{
		TotalAmount:      6000,
		InstallmentCount: 6,
		StartDate:        start,
		EndDate:          start.AddDate(0, 6, 0),
	})
	require.NoError(t, err)
	require.Len(t, lines, 6)

	var sum int64
	for i, line := range lines {
		assert.Equal(t, i+1, line.Seq)
		assert.Equal(t, int64(1000), line.Amount)
		assert.Equal(t, start.AddDate(0, i, 0), line.DueDate)
		sum += line.Amount
	}
	assert.Equal(t, int64(6000), sum)
}

func TestBuildScheduleRemainderOnLastLine(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	lines, err := BuildSchedule(ScheduleParams{
		TotalAmount:      1000,
		InstallmentCount: 3,
		StartDate:        start,
		EndDate:          start.AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, int64(333), lines[0].Amount)
	assert.Equal(t, int64(333), lines[1].Amount)
	assert.Equal(t, int64(334), lines[2].Amount)

	var sum int64
	for _, line := range lines {
		sum += line.Amount
	}
	assert.Equal(t, int64(1000), sum)
}

func TestBuildScheduleSumInvariantAcrossAwkwardSplits(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		total int64
		count int
	}{
		{100, 7},
		{999, 12},
		{1, 1},
		{50001, 11},
	}

	for _, tc := range cases {
		lines, err := BuildSchedule(ScheduleParams{
			TotalAmount:      tc.total,
			InstallmentCount: tc.count,
			StartDate:        start,
			EndDate:          start.AddDate(1, 0, 0),
		})
		require.NoError(t, err)
		require.Len(t, lines, tc.count)

		var sum int64
		for _, line := range lines {
			sum += line.Amount
		}
		assert.Equal(t, tc.total, sum, "total=%d count=%d", tc.total, tc.count)
	}
}

func TestBuildScheduleRejectsBadParameters(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0)

	_, err := BuildSchedule(ScheduleParams{TotalAmount: 0, InstallmentCount: 6, StartDate: start, EndDate: end})
	assert.ErrorIs(t, err, ErrInvalidPlanParameters)

	_, err = BuildSchedule(ScheduleParams{TotalAmount: -100, InstallmentCount: 6, StartDate: start, EndDate: end})
	assert.ErrorIs(t, err, ErrInvalidPlanParameters)

	_, err = BuildSchedule(ScheduleParams{TotalAmount: 6000, InstallmentCount: 0, StartDate: start, EndDate: end})
	assert.ErrorIs(t, err, ErrInvalidPlanParameters)

	_, err = BuildSchedule(ScheduleParams{TotalAmount: 6000, InstallmentCount: 6, StartDate: end, EndDate: start})
	assert.ErrorIs(t, err, ErrInvalidPlanParameters)

	_, err = BuildSchedule(ScheduleParams{TotalAmount: 6000, InstallmentCount: 6, StartDate: start, EndDate: start})
	assert.ErrorIs(t, err, ErrInvalidPlanParameters)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var computeNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func TestComputeNotPaid(t *testing.T) {
	snapshot := Compute(Inputs{
		Expected: 6000,
		Now:      computeNow,
	})
	assert.Equal(t, StateNotPaid, snapshot.Status)
	assert.Equal(t, int64(6000), snapshot.TotalDue)
	assert.Nil(t, snapshot.NextDueDate)
}

func TestComputeFullyPaid(t *testing.T) {
	snapshot := Compute(Inputs{
		Expected:         6000,
		CollectedTuition: 6000,
		Now:              computeNow,
	})
	assert.Equal(t, StateFullyPaid, snapshot.Status)
	assert.Equal(t, int64(0), snapshot.TotalDue)
}

func TestComputeFullyPaidDespiteOverdueHistory(t *testing.T) {
	// A settled history never resurfaces as overdue once due reaches zero.
	snapshot := Compute(Inputs{
		Expected:         6000,
		CollectedTuition: 7000,
		Now:              computeNow,
	})
	assert.Equal(t, StateFullyPaid, snapshot.Status)
	assert.Equal(t, int64(0), snapshot.TotalDue)
}

func TestComputeOverdueWinsOverPartiallyPaid(t *testing.T) {
	pastDue := computeNow.AddDate(0, -1, 0)
	snapshot := Compute(Inputs{
		Expected:         6000,
		CollectedTuition: 1000,
		PendingDueDates:  []time.Time{pastDue, computeNow.AddDate(0, 1, 0)},
		Now:              computeNow,
	})
	assert.Equal(t, StateOverdue, snapshot.Status)
	assert.Equal(t, 1, snapshot.OverdueCount)
	require.NotNil(t, snapshot.NextDueDate)
	assert.Equal(t, pastDue, *snapshot.NextDueDate)
}

func TestComputePartiallyPaid(t *testing.T) {
	futureDue := computeNow.AddDate(0, 1, 0)
	snapshot := Compute(Inputs{
		Expected:         6000,
		CollectedTuition: 1000,
		PendingDueDates:  []time.Time{futureDue},
		Now:              computeNow,
	})
	assert.Equal(t, StatePartiallyPaid, snapshot.Status)
	assert.Equal(t, int64(5000), snapshot.TotalDue)
	require.NotNil(t, snapshot.NextDueDate)
	assert.Equal(t, futureDue, *snapshot.NextDueDate)
}

func TestComputePendingWithOnlyAdditionalCollected(t *testing.T) {
	snapshot := Compute(Inputs{
		Expected:            6000,
		CollectedAdditional: 500,
		Now:                 computeNow,
	})
	assert.Equal(t, StatePending, snapshot.Status)
	assert.Equal(t, int64(6000), snapshot.TotalDue)
}

func TestComputeAdditionalNeverReducesDue(t *testing.T) {
	snapshot := Compute(Inputs{
		Expected:            6000,
		CollectedTuition:    1000,
		CollectedAdditional: 10000,
		Now:                 computeNow,
	})
	assert.Equal(t, int64(5000), snapshot.TotalDue)
}

func TestComputeNextDueIsEarliestPending(t *testing.T) {
	d1 := computeNow.AddDate(0, 2, 0)
	d2 := computeNow.AddDate(0, 1, 0)
	d3 := computeNow.AddDate(0, 3, 0)
	snapshot := Compute(Inputs{
		Expected:         6000,
		CollectedTuition: 1000,
		PendingDueDates:  []time.Time{d1, d2, d3},
		Now:              computeNow,
	})
	require.NotNil(t, snapshot.NextDueDate)
	assert.Equal(t, d2, *snapshot.NextDueDate)
	assert.Equal(t, 0, snapshot.OverdueCount)
}

package tracker

import (
	"testing"
	"time"

	"github.com/baymax-health/apiserver/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func takeBoth(t *testing.T, m types.Medicine, days int) types.Medicine {
	t.Helper()
	for d := 0; d < days; d++ {
		now := day0.AddDate(0, 0, d)
		var err error
		m, _, err = RecordIntake(m, IntakeRequest{TimeOfDay: types.Morning, Taken: true}, now, time.UTC)
		require.NoError(t, err)
		m, _, err = RecordIntake(m, IntakeRequest{TimeOfDay: types.Night, Taken: true}, now.Add(12*time.Hour), time.UTC)
		require.NoError(t, err)
	}
	return m
}

func TestProgressHalfwayScenario(t *testing.T) {
	m := takeBoth(t, newMedicine(t), 5)

	got := ComputeProgress(m)
	want := types.Progress{
		DailyPillCount:     2,
		TotalPillsNeeded:   20,
		PillsConsumed:      10,
		PillsLeftToTake:    10,
		ProgressPercentage: 50,
		IsCompleted:        false,
		DaysRemaining:      5,
		DaysOfStock:        5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected progress; diff (-want +got)\n%s", diff)
	}
	assert.Equal(t, 10, m.Quantity)
	assert.Len(t, m.IntakeHistory, 5)
}

func TestProgressIsMonotonicAndClamps(t *testing.T) {
	m := newMedicine(t)
	m.Program = 2
	m.Quantity = 100

	last := ComputeProgress(m).ProgressPercentage
	for d := 0; d < 4; d++ {
		for _, slot := range []types.TimeOfDay{types.Morning, types.Night} {
			var err error
			m, _, err = RecordIntake(m, IntakeRequest{TimeOfDay: slot, Taken: true}, day0.AddDate(0, 0, d), time.UTC)
			require.NoError(t, err)

			p := ComputeProgress(m)
			assert.GreaterOrEqual(t, p.ProgressPercentage, last)
			assert.LessOrEqual(t, p.ProgressPercentage, 100.0)
			last = p.ProgressPercentage
		}
	}

	p := ComputeProgress(m)
	assert.Equal(t, 100.0, p.ProgressPercentage)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, 8, p.PillsConsumed)
	assert.Equal(t, 0, p.PillsLeftToTake)
}

func TestDaysRemainingReachesZeroOnlyWhenDone(t *testing.T) {
	m := newMedicine(t)
	m.Program = 3

	for d := 0; d < 3; d++ {
		for _, slot := range []types.TimeOfDay{types.Morning, types.Night} {
			p := ComputeProgress(m)
			assert.Equal(t, p.PillsConsumed >= p.TotalPillsNeeded, p.DaysRemaining == 0,
				"consumed=%d total=%d days=%d", p.PillsConsumed, p.TotalPillsNeeded, p.DaysRemaining)

			var err error
			m, _, err = RecordIntake(m, IntakeRequest{TimeOfDay: slot, Taken: true}, day0.AddDate(0, 0, d), time.UTC)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 0, ComputeProgress(m).DaysRemaining)
}

func TestDaysRemainingRoundsUpAPartialDay(t *testing.T) {
	m := newMedicine(t)
	m.Program = 3

	m, _, err := RecordIntake(m, IntakeRequest{TimeOfDay: types.Morning, Taken: true}, day0, time.UTC)
	require.NoError(t, err)

	p := ComputeProgress(m)
	assert.Equal(t, 1, p.PillsConsumed)
	assert.Equal(t, 3, p.DaysRemaining)
	assert.Equal(t, 9, p.DaysOfStock)
}

func TestProgressUsesDosageRecordedAtIntake(t *testing.T) {
	m := takeBoth(t, newMedicine(t), 2)

	updated, err := ApplyUpdate(m, MedicineInput{
		Name:         m.Name,
		Dose:         m.Dose,
		Program:      m.Program,
		Quantity:     m.Quantity,
		FoodRelation: string(m.FoodRelation),
		DailyDosage:  types.DailyDosage{Morning: 3, Night: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, m.IntakeHistory, updated.IntakeHistory)

	assert.Equal(t, 4, ComputeProgress(updated).PillsConsumed)
}

func TestProgressFallsBackToCurrentDosage(t *testing.T) {
	m := newMedicine(t)
	m.IntakeHistory = []types.IntakeEntry{
		{Date: "2026-03-01", Morning: types.SlotIntake{Taken: true}, Night: types.SlotIntake{Taken: true}},
	}
	assert.Equal(t, 2, PillsConsumed(m))
}

func TestBuildSchedule(t *testing.T) {
	a := newMedicine(t)
	a.ID = "a"
	a, _, err := RecordIntake(a, IntakeRequest{TimeOfDay: types.Morning, Taken: true}, day0, time.UTC)
	require.NoError(t, err)

	b := newMedicine(t)
	b.ID = "b"
	b.Name = "Vitamin D"
	b.DailyDosage = types.DailyDosage{Noon: 2}
	b.Quantity = 1

	s := BuildSchedule([]types.Medicine{a, b}, day0.Add(4*time.Hour), time.UTC)
	assert.Equal(t, "2026-03-01", s.Date)
	require.Len(t, s.Morning, 1)
	require.Len(t, s.Noon, 1)
	require.Len(t, s.Night, 1)

	assert.True(t, s.Morning[0].Taken)
	assert.Equal(t, 19, s.Morning[0].Remaining)
	assert.False(t, s.Night[0].Taken)

	assert.Equal(t, "b", s.Noon[0].MedicineID)
	assert.True(t, s.Noon[0].OutOfStock)
	assert.Equal(t, 2, s.Noon[0].Count)

	// Yesterday's intake does not show as taken today.
	tomorrow := BuildSchedule([]types.Medicine{a}, day0.AddDate(0, 0, 1), time.UTC)
	assert.False(t, tomorrow.Morning[0].Taken)
}

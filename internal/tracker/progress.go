package tracker

import (
	"time"

	"github.com/baymax-health/apiserver/types"
)

// PillsConsumed sums the pills recorded as taken across the whole history.
// Slots recorded without a count fall back to the medicine's current dosage.
func PillsConsumed(m types.Medicine) int {
	consumed := 0
	for i := range m.IntakeHistory {
		entry := &m.IntakeHistory[i]
		for _, t := range types.TimesOfDay {
			slot := entry.Slot(t)
			if !slot.Taken {
				continue
			}
			if slot.Count > 0 {
				consumed += slot.Count
			} else {
				consumed += m.DailyDosage.For(t)
			}
		}
	}
	return consumed
}

// ComputeProgress derives completion figures from the intake history.
//
// DaysRemaining is the pills still to take divided by the daily pill count,
// rounded up: it is 0 exactly when every pill of the program has been
// taken. DaysOfStock is the remaining quantity divided by the daily pill
// count, rounded down.
func ComputeProgress(m types.Medicine) types.Progress {
	daily := m.DailyDosage.Total()
	total := daily * m.Program
	consumed := PillsConsumed(m)

	left := total - consumed
	if left < 0 {
		left = 0
	}

	p := types.Progress{
		DailyPillCount:   daily,
		TotalPillsNeeded: total,
		PillsConsumed:    consumed,
		PillsLeftToTake:  left,
	}
	if total > 0 {
		pct := float64(consumed) / float64(total) * 100
		switch {
		case pct < 0:
			pct = 0
		case pct > 100:
			pct = 100
		}
		p.ProgressPercentage = pct
	}
	p.IsCompleted = p.ProgressPercentage >= 100

	if daily > 0 {
		// A partially covered day still counts as a day to go.
		p.DaysRemaining = (left + daily - 1) / daily
		if m.Quantity > 0 {
			p.DaysOfStock = m.Quantity / daily
		}
	}
	return p
}

// BuildSchedule groups the medicines' doses for the day containing now.
// A medicine appears in every slot with a configured dosage.
func BuildSchedule(meds []types.Medicine, now time.Time, loc *time.Location) types.Schedule {
	today := DateKey(now, loc)
	s := types.Schedule{
		Date:    today,
		Morning: []types.ScheduleItem{},
		Noon:    []types.ScheduleItem{},
		Night:   []types.ScheduleItem{},
	}

	for i := range meds {
		m := &meds[i]
		completed := ComputeProgress(*m).IsCompleted
		entry := m.EntryFor(today)

		for _, t := range types.TimesOfDay {
			count := m.DailyDosage.For(t)
			if count <= 0 {
				continue
			}
			taken := false
			if entry != nil {
				taken = entry.Slot(t).Taken
			}
			item := types.ScheduleItem{
				MedicineID:   m.ID,
				Name:         m.Name,
				Dose:         m.Dose,
				FoodRelation: m.FoodRelation,
				Count:        count,
				Taken:        taken,
				Remaining:    m.Quantity,
				OutOfStock:   !taken && m.Quantity < count,
				IsCompleted:  completed,
			}
			switch t {
			case types.Morning:
				s.Morning = append(s.Morning, item)
			case types.Noon:
				s.Noon = append(s.Noon, item)
			case types.Night:
				s.Night = append(s.Night, item)
			}
		}
	}
	return s
}

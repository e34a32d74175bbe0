// Package tracker owns the regimen arithmetic: validating medicines,
// recording intakes against the daily log, and deriving progress and the
// daily schedule from it. Everything here is pure; persistence and
// concurrency control live in the callers.
package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baymax-health/apiserver/types"
)

// DateLayout is the calendar-day key of intake entries.
const DateLayout = "2006-01-02"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyTaken      = errors.New("dose already taken for this slot today")
	ErrNotTaken          = errors.New("dose has not been taken for this slot today")
)

// ValidationError reports an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// MedicineInput carries the mutable fields of a medicine, as supplied on
// create and on full-replacement update.
type MedicineInput struct {
	Name         string
	Dose         string
	Program      int
	Quantity     int
	FoodRelation string
	DailyDosage  types.DailyDosage

	// StartDate is only honoured on create. Nil means now.
	StartDate *time.Time
}

// ParseFoodRelation accepts the stored labels as well as the short forms
// "before" and "after", case-insensitively.
func ParseFoodRelation(raw string) (types.FoodRelation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "before", "before food":
		return types.BeforeFood, nil
	case "after", "after food":
		return types.AfterFood, nil
	}
	return "", invalid("foodRelation", "foodRelation must be one of \"Before food\" or \"After food\"")
}

func (in MedicineInput) normalize() (MedicineInput, types.FoodRelation, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dose = strings.TrimSpace(in.Dose)
	if in.Name == "" {
		return in, "", invalid("name", "name is required")
	}
	if in.Dose == "" {
		return in, "", invalid("dose", "dose is required")
	}
	if in.Program < 1 {
		return in, "", invalid("program", "program must be at least 1 day")
	}
	if in.Quantity < 0 {
		return in, "", invalid("quantity", "quantity must not be negative")
	}
	d := in.DailyDosage
	if d.Morning < 0 || d.Noon < 0 || d.Night < 0 {
		return in, "", invalid("dailyDosage", "dosage counts must not be negative")
	}
	if d.Total() == 0 {
		return in, "", invalid("dailyDosage", "at least one dosage count must be greater than zero")
	}
	relation, err := ParseFoodRelation(in.FoodRelation)
	if err != nil {
		return in, "", err
	}
	return in, relation, nil
}

// NewMedicine validates in and builds an active medicine with an empty
// intake history.
func NewMedicine(userID string, in MedicineInput, now time.Time) (types.Medicine, error) {
	in, relation, err := in.normalize()
	if err != nil {
		return types.Medicine{}, err
	}
	start := now
	if in.StartDate != nil && !in.StartDate.IsZero() {
		start = *in.StartDate
	}
	return types.Medicine{
		UserID:        userID,
		Name:          in.Name,
		Dose:          in.Dose,
		Program:       in.Program,
		Quantity:      in.Quantity,
		FoodRelation:  relation,
		DailyDosage:   in.DailyDosage,
		StartDate:     start,
		Status:        types.StatusActive,
		IntakeHistory: []types.IntakeEntry{},
	}, nil
}

// ApplyUpdate replaces the mutable fields of m. Intake history, status and
// start date are left untouched.
func ApplyUpdate(m types.Medicine, in MedicineInput) (types.Medicine, error) {
	in, relation, err := in.normalize()
	if err != nil {
		return types.Medicine{}, err
	}
	m.Name = in.Name
	m.Dose = in.Dose
	m.Program = in.Program
	m.Quantity = in.Quantity
	m.FoodRelation = relation
	m.DailyDosage = in.DailyDosage
	return m, nil
}

// DateKey returns the calendar day of t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// IntakeRequest asks to mark a slot of today's entry as taken or to undo it.
type IntakeRequest struct {
	TimeOfDay types.TimeOfDay
	Taken     bool

	// Count is the number of pills involved. Zero means the medicine's
	// configured dosage for the slot.
	Count int
}

// CheckStock reports ErrInsufficientStock when quantity cannot cover count.
func CheckStock(quantity, count int) error {
	if quantity < count {
		return fmt.Errorf("%w: %d available, %d needed", ErrInsufficientStock, quantity, count)
	}
	return nil
}

// RecordIntake applies a take or undo to today's intake entry and adjusts
// the remaining quantity. It returns the updated copy of m and the number of
// pills moved. On error m is returned unchanged.
func RecordIntake(m types.Medicine, req IntakeRequest, now time.Time, loc *time.Location) (types.Medicine, int, error) {
	if !req.TimeOfDay.Valid() {
		return m, 0, invalid("timeOfDay", "timeOfDay must be one of morning, noon or night")
	}
	if req.Count < 0 {
		return m, 0, invalid("count", "count must not be negative")
	}

	count := req.Count
	if count == 0 {
		count = m.DailyDosage.For(req.TimeOfDay)
	}

	orig := m
	history := make([]types.IntakeEntry, len(m.IntakeHistory), len(m.IntakeHistory)+1)
	copy(history, m.IntakeHistory)
	m.IntakeHistory = history

	today := DateKey(now, loc)
	entry := m.EntryFor(today)
	if entry == nil {
		m.IntakeHistory = append(m.IntakeHistory, types.IntakeEntry{Date: today})
		entry = &m.IntakeHistory[len(m.IntakeHistory)-1]
	}
	slot := entry.Slot(req.TimeOfDay)

	if req.Taken {
		if count <= 0 {
			return orig, 0, invalid("count", "no dose is scheduled for this slot")
		}
		if slot.Taken {
			return orig, 0, ErrAlreadyTaken
		}
		if err := CheckStock(m.Quantity, count); err != nil {
			return orig, 0, err
		}
		taken := now
		m.Quantity -= count
		*slot = types.SlotIntake{Taken: true, Time: &taken, Count: count}
		return m, count, nil
	}

	if !slot.Taken {
		return orig, 0, ErrNotTaken
	}
	if slot.Count > 0 {
		count = slot.Count
	}
	m.Quantity += count
	*slot = types.SlotIntake{}
	return m, count, nil
}

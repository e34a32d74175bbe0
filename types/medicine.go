package types

import "time"

// TimeOfDay names one of the three daily dosing slots.
type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Noon    TimeOfDay = "noon"
	Night   TimeOfDay = "night"
)

// TimesOfDay lists the dosing slots in display order.
var TimesOfDay = []TimeOfDay{Morning, Noon, Night}

// Valid reports whether t is a known dosing slot.
func (t TimeOfDay) Valid() bool {
	switch t {
	case Morning, Noon, Night:
		return true
	}
	return false
}

// FoodRelation describes whether a medicine is taken before or after food.
type FoodRelation string

const (
	BeforeFood FoodRelation = "Before food"
	AfterFood  FoodRelation = "After food"
)

// MedicineStatus is the lifecycle state of a regimen.
type MedicineStatus string

const (
	StatusActive    MedicineStatus = "active"
	StatusCompleted MedicineStatus = "completed"
)

// DailyDosage holds the number of pills scheduled for each slot of a day.
type DailyDosage struct {
	Morning int `json:"morning" bson:"morning"`
	Noon    int `json:"noon" bson:"noon"`
	Night   int `json:"night" bson:"night"`
}

// For returns the configured pill count for a slot.
func (d DailyDosage) For(slot TimeOfDay) int {
	switch slot {
	case Morning:
		return d.Morning
	case Noon:
		return d.Noon
	case Night:
		return d.Night
	}
	return 0
}

// Total returns the number of pills scheduled per day.
func (d DailyDosage) Total() int {
	return d.Morning + d.Noon + d.Night
}

// SlotIntake records whether a slot's dose was taken on a given day.
type SlotIntake struct {
	Taken bool       `json:"taken" bson:"taken"`
	Time  *time.Time `json:"time" bson:"time,omitempty"`

	// Count is the number of pills taken for the slot. It is captured when
	// the dose is taken so later dosage edits do not rewrite history.
	Count int `json:"count,omitempty" bson:"count,omitempty"`
}

// IntakeEntry is the intake record of one calendar day.
type IntakeEntry struct {
	// Date is the calendar day in YYYY-MM-DD form.
	Date    string     `json:"date" bson:"date"`
	Morning SlotIntake `json:"morning" bson:"morning"`
	Noon    SlotIntake `json:"noon" bson:"noon"`
	Night   SlotIntake `json:"night" bson:"night"`
}

// Slot returns a pointer to the slot record for t, or nil for an unknown slot.
func (e *IntakeEntry) Slot(t TimeOfDay) *SlotIntake {
	switch t {
	case Morning:
		return &e.Morning
	case Noon:
		return &e.Noon
	case Night:
		return &e.Night
	}
	return nil
}

// Medicine is a medication regimen owned by a single user.
type Medicine struct {
	// ID is the unique identifier of the medicine.
	ID string `json:"id" bson:"_id" db:"id"`

	// UserID identifies the owning user.
	UserID string `json:"userId" bson:"userId" db:"user_id"`

	// Name is the medicine's name.
	Name string `json:"name" bson:"name" db:"name"`

	// Dose is a free-text strength descriptor such as "500".
	Dose string `json:"dose" bson:"dose" db:"dose"`

	// Program is the regimen duration in days.
	Program int `json:"program" bson:"program" db:"program"`

	// Quantity is the number of pills physically remaining.
	Quantity int `json:"quantity" bson:"quantity" db:"quantity"`

	FoodRelation FoodRelation `json:"foodRelation" bson:"foodRelation" db:"food_relation"`
	DailyDosage  DailyDosage  `json:"dailyDosage" bson:"dailyDosage" db:"daily_dosage"`

	StartDate time.Time      `json:"startDate" bson:"startDate" db:"start_date"`
	Status    MedicineStatus `json:"status" bson:"status" db:"status"`

	// IntakeHistory holds at most one entry per calendar day, in the order
	// the days were first recorded.
	IntakeHistory []IntakeEntry `json:"intakeHistory" bson:"intakeHistory" db:"intake_history"`

	// Version is incremented on every write and used as a precondition
	// for read-modify-write updates.
	Version int64 `json:"version" bson:"version" db:"version"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// EntryFor returns the intake entry for the given calendar day, or nil.
func (m *Medicine) EntryFor(date string) *IntakeEntry {
	for i := range m.IntakeHistory {
		if m.IntakeHistory[i].Date == date {
			return &m.IntakeHistory[i]
		}
	}
	return nil
}

// Progress is derived from a medicine's intake history. It is never stored.
type Progress struct {
	DailyPillCount     int     `json:"dailyPillCount"`
	TotalPillsNeeded   int     `json:"totalPillsNeeded"`
	PillsConsumed      int     `json:"pillsConsumed"`
	PillsLeftToTake    int     `json:"pillsLeftToTake"`
	ProgressPercentage float64 `json:"progressPercentage"`
	IsCompleted        bool    `json:"isCompleted"`
	DaysRemaining      int     `json:"daysRemaining"`
	DaysOfStock        int     `json:"daysOfStock"`
}

// ScheduleItem is one medicine's dose in a single slot of today's schedule.
type ScheduleItem struct {
	MedicineID   string       `json:"medicineId"`
	Name         string       `json:"name"`
	Dose         string       `json:"dose"`
	FoodRelation FoodRelation `json:"foodRelation"`
	Count        int          `json:"count"`
	Taken        bool         `json:"taken"`
	Remaining    int          `json:"remaining"`
	OutOfStock   bool         `json:"outOfStock"`
	IsCompleted  bool         `json:"isCompleted"`
}

// Schedule groups today's doses by slot.
type Schedule struct {
	Date    string         `json:"date"`
	Morning []ScheduleItem `json:"morning"`
	Noon    []ScheduleItem `json:"noon"`
	Night   []ScheduleItem `json:"night"`
}

// Slot returns the items for t.
func (s *Schedule) Slot(t TimeOfDay) []ScheduleItem {
	switch t {
	case Morning:
		return s.Morning
	case Noon:
		return s.Noon
	case Night:
		return s.Night
	}
	return nil
}

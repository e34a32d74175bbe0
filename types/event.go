package types

import "time"

// IntakeEvent is published after an intake is recorded or undone.
type IntakeEvent struct {
	MedicineID   string    `json:"medicineId"`
	UserID       string    `json:"userId"`
	MedicineName string    `json:"medicineName"`
	TimeOfDay    TimeOfDay `json:"timeOfDay"`
	Taken        bool      `json:"taken"`
	Count        int       `json:"count"`
	Quantity     int       `json:"quantity"`
	DailyPills   int       `json:"dailyPills"`
	DaysOfStock  int       `json:"daysOfStock"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Report is an adherence summary of all of a user's medicines.
type Report struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Medicines   []ReportMedicine `json:"medicines"`
}

// ReportMedicine is one medicine line of a Report.
type ReportMedicine struct {
	MedicineID string   `json:"medicineId"`
	Name       string   `json:"name"`
	Dose       string   `json:"dose"`
	Quantity   int      `json:"quantity"`
	DaysLogged int      `json:"daysLogged"`
	Progress   Progress `json:"progress"`
}

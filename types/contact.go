package types

import "time"

// ContactType distinguishes doctors from pharmacies.
type ContactType string

const (
	ContactDoctor   ContactType = "doctor"
	ContactPharmacy ContactType = "pharmacy"
)

// Contact is a doctor or pharmacy in a user's address book.
// Contacts are created and deleted, never edited in place.
type Contact struct {
	ID        string      `json:"id" bson:"_id" db:"id"`
	UserID    string      `json:"userId" bson:"userId" db:"user_id"`
	Name      string      `json:"name" bson:"name" db:"name"`
	Type      ContactType `json:"type" bson:"type" db:"type"`
	Phone     string      `json:"phone" bson:"phone" db:"phone"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt" db:"created_at"`
}

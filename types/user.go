package types

import "time"

// User represents an account in the system.
// It contains identity, contact details, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" bson:"_id" db:"id"`

	// FirstName and LastName make up the user's display name.
	FirstName string `json:"firstName" bson:"firstName" db:"first_name"`
	LastName  string `json:"lastName" bson:"lastName" db:"last_name"`

	// Email is the user's login name. It is stored trimmed and lowercased
	// and is unique across all accounts.
	Email string `json:"email" bson:"email" db:"email"`

	// Phone is a free-form phone number.
	Phone string `json:"phone" bson:"phone" db:"phone"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"passwordHash" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

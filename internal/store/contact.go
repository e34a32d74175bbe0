package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/baymax-health/apiserver/types"
	"github.com/google/uuid"
)

// ContactRepository handles persistence for contacts.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID string) ([]types.Contact, error) {
	if !validID(userID) {
		return []types.Contact{}, nil
	}
	const query = `
		SELECT id, user_id, name, type, phone, created_at
		FROM contacts
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []types.Contact{}
	for rows.Next() {
		var c types.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	contact.ID = uuid.NewString()
	contact.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO contacts (id, user_id, name, type, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		contact.ID,
		contact.UserID,
		contact.Name,
		contact.Type,
		contact.Phone,
		contact.CreatedAt,
	); err != nil {
		return types.Contact{}, err
	}
	return contact, nil
}

// Delete removes a contact only if it belongs to userID.
func (r *ContactRepository) Delete(ctx context.Context, userID, id string) error {
	if !validID(userID) || !validID(id) {
		return ErrNotFound
	}
	const query = `DELETE FROM contacts WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

package services

import (
	"context"
	"strings"

	"github.com/baymax-health/apiserver/types"
)

// ContactRepository defines persistence operations for contacts.
type ContactRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.Contact, error)
	Create(ctx context.Context, contact types.Contact) (types.Contact, error)
	Delete(ctx context.Context, userID, id string) error
}

type ContactInput struct {
	Name  string
	Type  string
	Phone string
}

// ContactService encapsulates the address book use-cases.
type ContactService struct {
	repo ContactRepository
}

func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) List(ctx context.Context, userID string) ([]types.Contact, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ContactService) Create(ctx context.Context, userID string, in ContactInput) (types.Contact, error) {
	contact := types.Contact{
		UserID: userID,
		Name:   strings.TrimSpace(in.Name),
		Type:   types.ContactType(strings.ToLower(strings.TrimSpace(in.Type))),
		Phone:  strings.TrimSpace(in.Phone),
	}
	if contact.Name == "" {
		return types.Contact{}, invalid("name", "name is required")
	}
	if contact.Type != types.ContactDoctor && contact.Type != types.ContactPharmacy {
		return types.Contact{}, invalid("type", "type must be doctor or pharmacy")
	}
	if contact.Phone == "" {
		return types.Contact{}, invalid("phone", "phone is required")
	}
	return s.repo.Create(ctx, contact)
}

// Delete removes a contact owned by userID. A contact owned by someone else
// is reported as store.ErrNotFound.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

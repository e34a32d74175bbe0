// Package memstore keeps users, medicines and contacts in process memory.
// It backs local development and tests and honours the same version
// precondition as the database backends.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/types"
	"github.com/google/uuid"
)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	users     map[string]types.User
	medicines map[string]types.Medicine
	contacts  map[string]types.Contact

	// seq orders records created within the same clock tick.
	seq   int64
	order map[string]int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:     make(map[string]types.User),
		medicines: make(map[string]types.Medicine),
		contacts:  make(map[string]types.Contact),
		order:     make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() *UserRepository         { return &UserRepository{s: s} }
func (s *Store) Medicines() *MedicineRepository { return &MedicineRepository{s: s} }
func (s *Store) Contacts() *ContactRepository   { return &ContactRepository{s: s} }

func (s *Store) nextSeq(id string) {
	s.seq++
	s.order[id] = s.seq
}

// newestFirst reports whether record a sorts before b.
func (s *Store) newestFirst(aID string, aCreated time.Time, bID string, bCreated time.Time) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return s.order[aID] > s.order[bID]
}

func cloneMedicine(m types.Medicine) types.Medicine {
	history := make([]types.IntakeEntry, len(m.IntakeHistory))
	copy(history, m.IntakeHistory)
	m.IntakeHistory = history
	return m
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) emailTakenLocked(email, exceptID string) bool {
	for id, user := range r.s.users {
		if id != exceptID && user.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTakenLocked(user.Email, "") {
		return types.User{}, store.ErrDuplicate
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	r.s.nextSeq(user.ID)
	return user, nil
}

func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.emailTakenLocked(user.Email, user.ID) {
		return types.User{}, store.ErrDuplicate
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = user
	return user, nil
}

type MedicineRepository struct {
	s *Store
}

func (r *MedicineRepository) ListByUser(_ context.Context, userID string) ([]types.Medicine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	meds := []types.Medicine{}
	for _, m := range r.s.medicines {
		if m.UserID == userID {
			meds = append(meds, cloneMedicine(m))
		}
	}
	sort.Slice(meds, func(i, j int) bool {
		return r.s.newestFirst(meds[i].ID, meds[i].CreatedAt, meds[j].ID, meds[j].CreatedAt)
	})
	return meds, nil
}

func (r *MedicineRepository) Get(_ context.Context, userID, id string) (types.Medicine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.medicines[id]
	if !ok || m.UserID != userID {
		return types.Medicine{}, store.ErrNotFound
	}
	return cloneMedicine(m), nil
}

func (r *MedicineRepository) Create(_ context.Context, m types.Medicine) (types.Medicine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	m.ID = uuid.NewString()
	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now
	m = cloneMedicine(m)
	r.s.medicines[m.ID] = m
	r.s.nextSeq(m.ID)
	return cloneMedicine(m), nil
}

// Update stores m if its version matches the stored one.
func (r *MedicineRepository) Update(_ context.Context, m types.Medicine) (types.Medicine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.medicines[m.ID]
	if !ok || existing.UserID != m.UserID {
		return types.Medicine{}, store.ErrNotFound
	}
	if existing.Version != m.Version {
		return types.Medicine{}, store.ErrConflict
	}
	m.Version++
	m.StartDate = existing.StartDate
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = r.s.now()
	m = cloneMedicine(m)
	r.s.medicines[m.ID] = m
	return cloneMedicine(m), nil
}

func (r *MedicineRepository) Delete(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.medicines[id]
	if !ok || m.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.s.medicines, id)
	delete(r.s.order, id)
	return nil
}

type ContactRepository struct {
	s *Store
}

func (r *ContactRepository) ListByUser(_ context.Context, userID string) ([]types.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	contacts := []types.Contact{}
	for _, c := range r.s.contacts {
		if c.UserID == userID {
			contacts = append(contacts, c)
		}
	}
	sort.Slice(contacts, func(i, j int) bool {
		return r.s.newestFirst(contacts[i].ID, contacts[i].CreatedAt, contacts[j].ID, contacts[j].CreatedAt)
	})
	return contacts, nil
}

func (r *ContactRepository) Create(_ context.Context, c types.Contact) (types.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.now()
	r.s.contacts[c.ID] = c
	r.s.nextSeq(c.ID)
	return c, nil
}

func (r *ContactRepository) Delete(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.s.contacts, id)
	delete(r.s.order, id)
	return nil
}

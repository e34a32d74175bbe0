package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baymax-health/apiserver/internal/metrics"
	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/internal/tracker"
	"github.com/baymax-health/apiserver/types"
)

// maxWriteAttempts bounds read-modify-write retries on version conflicts.
const maxWriteAttempts = 3

// MedicineRepository defines persistence operations for medicines. Every
// lookup is scoped to the owning user.
type MedicineRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.Medicine, error)
	Get(ctx context.Context, userID, id string) (types.Medicine, error)
	Create(ctx context.Context, med types.Medicine) (types.Medicine, error)
	Update(ctx context.Context, med types.Medicine) (types.Medicine, error)
	Delete(ctx context.Context, userID, id string) error
}

// EventPublisher publishes domain events as JSON.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (string, error)
}

// MedicineService encapsulates regimen use-cases.
type MedicineService struct {
	repo    MedicineRepository
	events  EventPublisher
	topic   string
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

type MedicineOption func(*MedicineService)

// WithEvents publishes an IntakeEvent on topic after every intake change.
func WithEvents(pub EventPublisher, topic string) MedicineOption {
	return func(s *MedicineService) {
		s.events = pub
		s.topic = topic
	}
}

func WithMetrics(m *metrics.Metrics) MedicineOption {
	return func(s *MedicineService) { s.metrics = m }
}

// WithLocation sets the zone whose calendar days key intake entries.
func WithLocation(loc *time.Location) MedicineOption {
	return func(s *MedicineService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) MedicineOption {
	return func(s *MedicineService) { s.now = now }
}

func NewMedicineService(repo MedicineRepository, opts ...MedicineOption) *MedicineService {
	s := &MedicineService{repo: repo, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone used for intake days.
func (s *MedicineService) Location() *time.Location {
	return s.loc
}

func (s *MedicineService) List(ctx context.Context, userID string) ([]types.Medicine, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *MedicineService) Get(ctx context.Context, userID, id string) (types.Medicine, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *MedicineService) Create(ctx context.Context, userID string, in tracker.MedicineInput) (types.Medicine, error) {
	med, err := tracker.NewMedicine(userID, in, s.now())
	if err != nil {
		return types.Medicine{}, err
	}
	return s.repo.Create(ctx, med)
}

func (s *MedicineService) Update(ctx context.Context, userID, id string, in tracker.MedicineInput) (types.Medicine, error) {
	return s.mutate(ctx, userID, id, func(med types.Medicine) (types.Medicine, error) {
		return tracker.ApplyUpdate(med, in)
	})
}

func (s *MedicineService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// RecordIntake marks a slot of today's entry as taken or undoes it.
func (s *MedicineService) RecordIntake(ctx context.Context, userID, id string, req tracker.IntakeRequest) (types.Medicine, error) {
	var moved int
	updated, err := s.mutate(ctx, userID, id, func(med types.Medicine) (types.Medicine, error) {
		next, n, err := tracker.RecordIntake(med, req, s.now(), s.loc)
		moved = n
		return next, err
	})
	if err != nil {
		return types.Medicine{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveIntake(string(req.TimeOfDay), req.Taken)
	}
	s.publishIntake(ctx, updated, req, moved)
	return updated, nil
}

// Schedule returns today's doses grouped by slot.
func (s *MedicineService) Schedule(ctx context.Context, userID string) (types.Schedule, error) {
	meds, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return types.Schedule{}, err
	}
	return tracker.BuildSchedule(meds, s.now(), s.loc), nil
}

// mutate runs a read-modify-write of one medicine with its version as the
// write precondition, retrying when another writer got there first.
func (s *MedicineService) mutate(ctx context.Context, userID, id string, apply func(types.Medicine) (types.Medicine, error)) (types.Medicine, error) {
	for attempt := 1; ; attempt++ {
		med, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			return types.Medicine{}, err
		}
		next, err := apply(med)
		if err != nil {
			return types.Medicine{}, err
		}
		updated, err := s.repo.Update(ctx, next)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, store.ErrConflict) || attempt >= maxWriteAttempts {
			if errors.Is(err, store.ErrConflict) {
				return types.Medicine{}, fmt.Errorf("medicine %s after %d attempts: %w", id, attempt, err)
			}
			return types.Medicine{}, err
		}
		if s.metrics != nil {
			s.metrics.VersionRetries.Inc()
		}
		slog.DebugContext(ctx, "Retrying medicine write after version conflict",
			slog.String("medicine", id), slog.Int("attempt", attempt))
	}
}

func (s *MedicineService) publishIntake(ctx context.Context, med types.Medicine, req tracker.IntakeRequest, count int) {
	if s.events == nil {
		return
	}
	progress := tracker.ComputeProgress(med)
	ev := types.IntakeEvent{
		MedicineID:   med.ID,
		UserID:       med.UserID,
		MedicineName: med.Name,
		TimeOfDay:    req.TimeOfDay,
		Taken:        req.Taken,
		Count:        count,
		Quantity:     med.Quantity,
		DailyPills:   progress.DailyPillCount,
		DaysOfStock:  progress.DaysOfStock,
		OccurredAt:   s.now().UTC(),
	}
	if _, err := s.events.PublishJSON(ctx, s.topic, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish intake event",
			slog.String("medicine", med.ID), slog.Any("err", err))
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/baymax-health/apiserver/internal/storage"
	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/internal/tracker"
	"github.com/baymax-health/apiserver/types"
	"github.com/google/uuid"
)

var ErrReportsDisabled = errors.New("report storage is not configured")

// MedicineLister is the read side of MedicineRepository.
type MedicineLister interface {
	ListByUser(ctx context.Context, userID string) ([]types.Medicine, error)
}

// ReportService snapshots adherence reports into object storage under
// reports/<userID>/<reportID>.json.
type ReportService struct {
	meds    MedicineLister
	storage *storage.Storage
	now     func() time.Time
}

func NewReportService(meds MedicineLister, st *storage.Storage) *ReportService {
	return &ReportService{meds: meds, storage: st, now: time.Now}
}

func reportKey(userID, reportID string) string {
	return path.Join("reports", userID, reportID+".json")
}

// Generate builds a report of every medicine of userID and stores it.
func (s *ReportService) Generate(ctx context.Context, userID string) (string, types.Report, error) {
	if s.storage == nil {
		return "", types.Report{}, ErrReportsDisabled
	}
	meds, err := s.meds.ListByUser(ctx, userID)
	if err != nil {
		return "", types.Report{}, err
	}

	report := BuildReport(userID, meds, s.now().UTC())
	key := reportKey(userID, report.ID)
	if err := s.storage.PutJSON(ctx, key, report); err != nil {
		return "", types.Report{}, fmt.Errorf("while storing report %s: %w", key, err)
	}
	return key, report, nil
}

// Get loads a report owned by userID.
func (s *ReportService) Get(ctx context.Context, userID, reportID string) (types.Report, error) {
	if s.storage == nil {
		return types.Report{}, ErrReportsDisabled
	}
	if _, err := uuid.Parse(reportID); err != nil {
		return types.Report{}, store.ErrNotFound
	}

	var report types.Report
	if err := s.storage.GetJSON(ctx, reportKey(userID, reportID), &report); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return types.Report{}, store.ErrNotFound
		}
		return types.Report{}, err
	}
	return report, nil
}

// Delete removes a report owned by userID.
func (s *ReportService) Delete(ctx context.Context, userID, reportID string) error {
	if s.storage == nil {
		return ErrReportsDisabled
	}
	if _, err := uuid.Parse(reportID); err != nil {
		return store.ErrNotFound
	}

	// Some backends treat removing a missing key as success.
	key := reportKey(userID, reportID)
	rc, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return store.ErrNotFound
		}
		return err
	}
	_ = rc.Close()

	if err := s.storage.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("while deleting report %s: %w", key, err)
	}
	return nil
}

// List returns the ids of the reports owned by userID.
func (s *ReportService) List(ctx context.Context, userID string) ([]string, error) {
	if s.storage == nil {
		return nil, ErrReportsDisabled
	}
	prefix := path.Join("reports", userID) + "/"
	keys, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json"))
	}
	return ids, nil
}

// BuildReport summarizes meds as of now.
func BuildReport(userID string, meds []types.Medicine, now time.Time) types.Report {
	report := types.Report{
		ID:          uuid.NewString(),
		UserID:      userID,
		GeneratedAt: now,
		Medicines:   make([]types.ReportMedicine, 0, len(meds)),
	}
	for _, med := range meds {
		days := 0
		for _, entry := range med.IntakeHistory {
			if entry.Morning.Taken || entry.Noon.Taken || entry.Night.Taken {
				days++
			}
		}
		report.Medicines = append(report.Medicines, types.ReportMedicine{
			MedicineID: med.ID,
			Name:       med.Name,
			Dose:       med.Dose,
			Quantity:   med.Quantity,
			DaysLogged: days,
			Progress:   tracker.ComputeProgress(med),
		})
	}
	return report
}

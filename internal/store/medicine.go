package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/baymax-health/apiserver/types"
	"github.com/google/uuid"
)

// MedicineRepository handles persistence for medicines. The intake history
// is stored as a JSONB document alongside the scalar columns.
type MedicineRepository struct {
	db *sql.DB
}

func NewMedicineRepository(db *sql.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

const medicineColumns = `id, user_id, name, dose, program, quantity, food_relation,
	dosage_morning, dosage_noon, dosage_night, start_date, status, intake_history,
	version, created_at, updated_at`

func scanMedicine(row interface{ Scan(...any) error }) (types.Medicine, error) {
	var med types.Medicine
	var historyJSON []byte
	err := row.Scan(
		&med.ID,
		&med.UserID,
		&med.Name,
		&med.Dose,
		&med.Program,
		&med.Quantity,
		&med.FoodRelation,
		&med.DailyDosage.Morning,
		&med.DailyDosage.Noon,
		&med.DailyDosage.Night,
		&med.StartDate,
		&med.Status,
		&historyJSON,
		&med.Version,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Medicine{}, ErrNotFound
		}
		return types.Medicine{}, err
	}
	if err := json.Unmarshal(historyJSON, &med.IntakeHistory); err != nil {
		return types.Medicine{}, fmt.Errorf("decode intake history of %s: %w", med.ID, err)
	}
	if med.IntakeHistory == nil {
		med.IntakeHistory = []types.IntakeEntry{}
	}
	return med, nil
}

func (r *MedicineRepository) ListByUser(ctx context.Context, userID string) ([]types.Medicine, error) {
	if !validID(userID) {
		return []types.Medicine{}, nil
	}
	const query = `
		SELECT ` + medicineColumns + `
		FROM medicines
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meds := []types.Medicine{}
	for rows.Next() {
		med, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, med)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meds, nil
}

func (r *MedicineRepository) Get(ctx context.Context, userID, id string) (types.Medicine, error) {
	if !validID(userID) || !validID(id) {
		return types.Medicine{}, ErrNotFound
	}
	const query = `
		SELECT ` + medicineColumns + `
		FROM medicines
		WHERE id = $1 AND user_id = $2`
	return scanMedicine(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *MedicineRepository) Create(ctx context.Context, med types.Medicine) (types.Medicine, error) {
	now := time.Now().UTC()
	med.ID = uuid.NewString()
	med.Version = 1
	med.CreatedAt = now
	med.UpdatedAt = now
	if med.IntakeHistory == nil {
		med.IntakeHistory = []types.IntakeEntry{}
	}

	historyJSON, err := json.Marshal(med.IntakeHistory)
	if err != nil {
		return types.Medicine{}, err
	}

	const query = `
		INSERT INTO medicines (` + medicineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.db.ExecContext(
		ctx,
		query,
		med.ID,
		med.UserID,
		med.Name,
		med.Dose,
		med.Program,
		med.Quantity,
		med.FoodRelation,
		med.DailyDosage.Morning,
		med.DailyDosage.Noon,
		med.DailyDosage.Night,
		med.StartDate,
		med.Status,
		historyJSON,
		med.Version,
		med.CreatedAt,
		med.UpdatedAt,
	)
	if err != nil {
		return types.Medicine{}, err
	}
	return med, nil
}

// Update writes med if the stored version still equals med.Version and
// returns the record with its new version. A stale version yields
// ErrConflict.
func (r *MedicineRepository) Update(ctx context.Context, med types.Medicine) (types.Medicine, error) {
	if !validID(med.UserID) || !validID(med.ID) {
		return types.Medicine{}, ErrNotFound
	}
	historyJSON, err := json.Marshal(med.IntakeHistory)
	if err != nil {
		return types.Medicine{}, err
	}
	updatedAt := time.Now().UTC()

	const query = `
		UPDATE medicines
		SET name = $1,
			dose = $2,
			program = $3,
			quantity = $4,
			food_relation = $5,
			dosage_morning = $6,
			dosage_noon = $7,
			dosage_night = $8,
			status = $9,
			intake_history = $10,
			version = version + 1,
			updated_at = $11
		WHERE id = $12 AND user_id = $13 AND version = $14`
	result, err := r.db.ExecContext(
		ctx,
		query,
		med.Name,
		med.Dose,
		med.Program,
		med.Quantity,
		med.FoodRelation,
		med.DailyDosage.Morning,
		med.DailyDosage.Noon,
		med.DailyDosage.Night,
		med.Status,
		historyJSON,
		updatedAt,
		med.ID,
		med.UserID,
		med.Version,
	)
	if err != nil {
		return types.Medicine{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Medicine{}, err
	}
	if affected == 0 {
		if _, err := r.Get(ctx, med.UserID, med.ID); err != nil {
			return types.Medicine{}, err
		}
		return types.Medicine{}, ErrConflict
	}

	med.Version++
	med.UpdatedAt = updatedAt
	return med, nil
}

func (r *MedicineRepository) Delete(ctx context.Context, userID, id string) error {
	if !validID(userID) || !validID(id) {
		return ErrNotFound
	}
	const query = `DELETE FROM medicines WHERE id = $1 AND user_id = $2`
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

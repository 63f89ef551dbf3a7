package repository

import (
	"context"
	"time"

	"github.com/njbartlett/pfnext-backend/internal/models"
)

type TempPasswordRepository struct {
	db DBTX
}

func NewTempPasswordRepository(db DBTX) *TempPasswordRepository {
	return &TempPasswordRepository{db: db}
}

// Upsert stores the one live recovery record for a person, replacing any
// previous one (last write wins).
func (r *TempPasswordRepository) Upsert(ctx context.Context, record models.TempPassword) error {
	query := `
		INSERT INTO temp_password (person_id, pwd, sent, expiry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (person_id) DO UPDATE SET pwd = $2, sent = $3, expiry = $4
	`
	_, err := r.db.Exec(ctx, query, record.PersonID, record.Hash, record.Sent, record.Expiry)
	return err
}

func (r *TempPasswordRepository) GetByPersonID(ctx context.Context, personID int64) (*models.TempPassword, error) {
	query := `
		SELECT person_id, pwd, sent, expiry
		FROM temp_password
		WHERE person_id = $1
	`
	var record models.TempPassword
	err := r.db.QueryRow(ctx, query, personID).
		Scan(&record.PersonID, &record.Hash, &record.Sent, &record.Expiry)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SentSince reports whether a recovery password was already issued to the
// person after the given time. Drives the resend cooldown.
func (r *TempPasswordRepository) SentSince(ctx context.Context, personID int64, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM temp_password
			WHERE person_id = $1 AND sent > $2
		)
	`
	var sent bool
	if err := r.db.QueryRow(ctx, query, personID, since).Scan(&sent); err != nil {
		return false, err
	}
	return sent, nil
}

func (r *TempPasswordRepository) DeleteByPersonID(ctx context.Context, personID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM temp_password WHERE person_id = $1`, personID)
	return err
}

// DeleteExpired removes stale records. Called opportunistically after each
// issuance.
func (r *TempPasswordRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.Exec(ctx, `DELETE FROM temp_password WHERE expiry < $1`, now)
	return err
}

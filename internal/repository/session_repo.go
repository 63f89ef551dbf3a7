package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/njbartlett/pfnext-backend/internal/models"
)

type CreateSessionInput struct {
	Datetime        time.Time
	DurationMins    int
	SessionTypeID   int32
	LocationID      *int32
	TrainerID       *int64
	MaxBookingCount *int64
	Notes           *string
	Cost            int16
}

type SessionListFilter struct {
	From *time.Time
	To   *time.Time
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO session (datetime, duration_mins, session_type, location, trainer, max_booking_count, notes, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, datetime, duration_mins, session_type, location, trainer, max_booking_count, notes, cost
	`
	return r.scanSession(r.db.QueryRow(
		ctx,
		query,
		input.Datetime,
		input.DurationMins,
		input.SessionTypeID,
		input.LocationID,
		input.TrainerID,
		input.MaxBookingCount,
		input.Notes,
		input.Cost,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		SELECT id, datetime, duration_mins, session_type, location, trainer, max_booking_count, notes, cost
		FROM session
		WHERE id = $1
	`
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// GetByIDForUpdate locks the session row for the duration of the enclosing
// transaction. The booking capacity check-then-insert runs under this lock
// so concurrent bookings for the same session serialize.
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		SELECT id, datetime, duration_mins, session_type, location, trainer, max_booking_count, notes, cost
		FROM session
		WHERE id = $1
		FOR UPDATE
	`
	return r.scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) Update(ctx context.Context, sessionID int64, input CreateSessionInput) (*models.Session, error) {
	query := `
		UPDATE session
		SET datetime = $2, duration_mins = $3, session_type = $4, location = $5,
		    trainer = $6, max_booking_count = $7, notes = $8, cost = $9
		WHERE id = $1
		RETURNING id, datetime, duration_mins, session_type, location, trainer, max_booking_count, notes, cost
	`
	return r.scanSession(r.db.QueryRow(
		ctx,
		query,
		sessionID,
		input.Datetime,
		input.DurationMins,
		input.SessionTypeID,
		input.LocationID,
		input.TrainerID,
		input.MaxBookingCount,
		input.Notes,
		input.Cost,
	))
}

// Delete removes the session; its bookings go with it via the cascade rule.
func (r *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	query := `DELETE FROM session WHERE id = $1 RETURNING id`
	var deleted int64
	return r.db.QueryRow(ctx, query, sessionID).Scan(&deleted)
}

func (r *SessionRepository) ListDetailed(ctx context.Context, filter SessionListFilter) ([]models.SessionDetail, error) {
	args := []any{}
	whereParts := []string{}

	if filter.From != nil {
		args = append(args, *filter.From)
		whereParts = append(whereParts, fmt.Sprintf("s.datetime >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		whereParts = append(whereParts, fmt.Sprintf("s.datetime <= $%d", len(args)))
	}

	where := ""
	if len(whereParts) > 0 {
		where = "WHERE " + strings.Join(whereParts, " AND ")
	}

	query := `
		SELECT s.id, s.datetime, s.duration_mins, s.session_type, s.location, s.trainer,
		       s.max_booking_count, s.notes, s.cost,
		       t.name, l.name, p.name
		FROM session AS s
		JOIN session_type AS t ON s.session_type = t.id
		LEFT JOIN location AS l ON s.location = l.id
		LEFT JOIN person AS p ON s.trainer = p.id
		` + where + `
		ORDER BY s.datetime, s.id
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.SessionDetail, 0)
	for rows.Next() {
		var detail models.SessionDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.Datetime,
			&detail.DurationMins,
			&detail.SessionTypeID,
			&detail.LocationID,
			&detail.TrainerID,
			&detail.MaxBookingCount,
			&detail.Notes,
			&detail.Cost,
			&detail.SessionTypeName,
			&detail.LocationName,
			&detail.TrainerName,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, detail)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.Datetime,
		&session.DurationMins,
		&session.SessionTypeID,
		&session.LocationID,
		&session.TrainerID,
		&session.MaxBookingCount,
		&session.Notes,
		&session.Cost,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

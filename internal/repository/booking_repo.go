package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/njbartlett/pfnext-backend/internal/models"
)

type BookingListFilter struct {
	PersonID  *int64
	SessionID *int64
	From      *time.Time
	To        *time.Time
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking row with the credit cost snapshotted at
// booking time. A duplicate (person, session) pair surfaces as a
// unique-constraint violation for the caller to translate.
func (r *BookingRepository) Create(ctx context.Context, personID, sessionID int64, creditsUsed int16) (*models.Booking, error) {
	query := `
		INSERT INTO booking (person_id, session_id, attended, credits_used)
		VALUES ($1, $2, FALSE, $3)
		RETURNING person_id, session_id, attended, credits_used
	`
	var booking models.Booking
	err := r.db.QueryRow(ctx, query, personID, sessionID, creditsUsed).
		Scan(&booking.PersonID, &booking.SessionID, &booking.Attended, &booking.CreditsUsed)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Get(ctx context.Context, personID, sessionID int64) (*models.Booking, error) {
	query := `
		SELECT person_id, session_id, attended, credits_used
		FROM booking
		WHERE person_id = $1 AND session_id = $2
	`
	var booking models.Booking
	err := r.db.QueryRow(ctx, query, personID, sessionID).
		Scan(&booking.PersonID, &booking.SessionID, &booking.Attended, &booking.CreditsUsed)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Exists(ctx context.Context, personID, sessionID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM booking WHERE person_id = $1 AND session_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, personID, sessionID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *BookingRepository) CountBySession(ctx context.Context, sessionID int64) (int64, error) {
	query := `SELECT count(*) FROM booking WHERE session_id = $1`
	var count int64
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the booking and returns it, freeing one capacity slot.
func (r *BookingRepository) Delete(ctx context.Context, personID, sessionID int64) (*models.Booking, error) {
	query := `
		DELETE FROM booking
		WHERE person_id = $1 AND session_id = $2
		RETURNING person_id, session_id, attended, credits_used
	`
	var booking models.Booking
	err := r.db.QueryRow(ctx, query, personID, sessionID).
		Scan(&booking.PersonID, &booking.SessionID, &booking.Attended, &booking.CreditsUsed)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// MarkAttended flips attended to true only if it is still false, so two
// concurrent marks cannot both succeed. Zero rows means the booking is
// gone or was already marked.
func (r *BookingRepository) MarkAttended(ctx context.Context, personID, sessionID int64) (*models.Booking, error) {
	query := `
		UPDATE booking
		SET attended = TRUE
		WHERE person_id = $1 AND session_id = $2 AND attended = FALSE
		RETURNING person_id, session_id, attended, credits_used
	`
	var booking models.Booking
	err := r.db.QueryRow(ctx, query, personID, sessionID).
		Scan(&booking.PersonID, &booking.SessionID, &booking.Attended, &booking.CreditsUsed)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) ListDetailed(ctx context.Context, filter BookingListFilter, limit, offset int) ([]models.BookingDetail, error) {
	args, where := buildBookingWhere(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT b.person_id, p.name, p.email, b.session_id,
		       s.datetime, s.duration_mins,
		       s.location, l.name, l.address,
		       s.session_type, t.name, t.requires_trainer, t.cost,
		       b.attended, b.credits_used
		FROM booking AS b
		JOIN person AS p ON b.person_id = p.id
		JOIN session AS s ON b.session_id = s.id
		JOIN session_type AS t ON s.session_type = t.id
		LEFT JOIN location AS l ON s.location = l.id
		%s
		ORDER BY s.datetime, p.name
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.BookingDetail, 0)
	for rows.Next() {
		var detail models.BookingDetail
		var locationID *int32
		var locationName, locationAddress *string
		if err := rows.Scan(
			&detail.PersonID,
			&detail.PersonName,
			&detail.PersonEmail,
			&detail.SessionID,
			&detail.SessionDatetime,
			&detail.SessionDurationMins,
			&locationID,
			&locationName,
			&locationAddress,
			&detail.SessionType.ID,
			&detail.SessionType.Name,
			&detail.SessionType.RequiresTrainer,
			&detail.SessionType.Cost,
			&detail.Attended,
			&detail.CreditsUsed,
		); err != nil {
			return nil, err
		}
		if locationID != nil {
			detail.SessionLocation = &models.Location{
				ID:      *locationID,
				Name:    *locationName,
				Address: *locationAddress,
			}
		}
		bookings = append(bookings, detail)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) CountDetailed(ctx context.Context, filter BookingListFilter) (int, error) {
	args, where := buildBookingWhere(filter)
	query := fmt.Sprintf(`
		SELECT count(*)
		FROM booking AS b
		JOIN session AS s ON b.session_id = s.id
		%s
	`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AttendanceStats counts attended bookings per person within the optional
// date window, restricted to the given session types. An empty type list
// matches nothing, mirroring the admin report it feeds.
func (r *BookingRepository) AttendanceStats(ctx context.Context, from, to *time.Time, sessionTypes []int32) ([]models.AttendanceStat, error) {
	args := []any{}
	inner := []string{"booking.attended = TRUE"}

	if from != nil {
		args = append(args, *from)
		inner = append(inner, fmt.Sprintf("session.datetime >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		inner = append(inner, fmt.Sprintf("session.datetime <= $%d", len(args)))
	}
	if len(sessionTypes) > 0 {
		args = append(args, sessionTypes)
		inner = append(inner, fmt.Sprintf("session.session_type = ANY($%d)", len(args)))
	} else {
		inner = append(inner, "FALSE")
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.email, (
			SELECT count(*)
			FROM booking
			JOIN session ON booking.session_id = session.id
			WHERE booking.person_id = p.id
			AND %s
		) AS attended_count
		FROM person AS p
		ORDER BY attended_count DESC, p.name
	`, strings.Join(inner, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.AttendanceStat, 0)
	for rows.Next() {
		var stat models.AttendanceStat
		if err := rows.Scan(&stat.PersonID, &stat.Name, &stat.Email, &stat.AttendedCount); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func buildBookingWhere(filter BookingListFilter) ([]any, string) {
	args := []any{}
	whereParts := []string{}

	if filter.PersonID != nil {
		args = append(args, *filter.PersonID)
		whereParts = append(whereParts, fmt.Sprintf("b.person_id = $%d", len(args)))
	}
	if filter.SessionID != nil {
		args = append(args, *filter.SessionID)
		whereParts = append(whereParts, fmt.Sprintf("b.session_id = $%d", len(args)))
	}
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
	return args, where
}

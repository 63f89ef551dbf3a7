package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/internal/repository"
)

var (
	ErrSessionInPast     = errors.New("session has already started")
	ErrAlreadyBooked     = errors.New("a booking already exists for this person and session")
	ErrSessionFull       = errors.New("session has reached its maximum number of bookings")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrTooLateToCancel   = errors.New("too late to cancel this booking")
	ErrSessionNotStarted = errors.New("session has not started yet")
	ErrAlreadyMarked     = errors.New("attendance already marked for this booking")
	ErrNotAuthorized     = errors.New("not authorized for this action")
)

type sessionReader interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
}

type bookingStore interface {
	Get(ctx context.Context, personID, sessionID int64) (*models.Booking, error)
	Delete(ctx context.Context, personID, sessionID int64) (*models.Booking, error)
	MarkAttended(ctx context.Context, personID, sessionID int64) (*models.Booking, error)
	ListDetailed(ctx context.Context, filter repository.BookingListFilter, limit, offset int) ([]models.BookingDetail, error)
	CountDetailed(ctx context.Context, filter repository.BookingListFilter) (int, error)
	AttendanceStats(ctx context.Context, from, to *time.Time, sessionTypes []int32) ([]models.AttendanceStat, error)
}

type BookingService struct {
	db       *pgxpool.Pool
	sessions sessionReader
	bookings bookingStore

	cancelCutoff time.Duration
	now          func() time.Time
}

func NewBookingService(
	db *pgxpool.Pool,
	sessions sessionReader,
	bookings bookingStore,
	cancelCutoff time.Duration,
) *BookingService {
	return &BookingService{
		db:           db,
		sessions:     sessions,
		bookings:     bookings,
		cancelCutoff: cancelCutoff,
		now:          time.Now,
	}
}

// CreateBooking reserves a spot on a session. The capacity check and the
// insert run in one transaction under a row lock on the session, so
// concurrent requests for the same session serialize and the confirmed
// count can never exceed max_booking_count.
func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, personID, sessionID int64) (*models.Booking, error) {
	if !policy.Authorized(actor.Roles, policy.ActionBookOwn) {
		return nil, ErrNotAuthorized
	}
	if personID != actor.ID && !actor.Roles.Has(policy.RoleAdmin) {
		return nil, ErrNotAuthorized
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Datetime.Before(s.now()) {
		return nil, ErrSessionInPast
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txBookingRepo := repository.NewBookingRepository(tx)

	// Re-read under lock: capacity and cost must come from the locked row.
	session, err = txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	exists, err := txBookingRepo.Exists(ctx, personID, sessionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyBooked
	}

	if session.MaxBookingCount != nil {
		count, err := txBookingRepo.CountBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if count >= *session.MaxBookingCount {
			return nil, ErrSessionFull
		}
	}

	booking, err := txBookingRepo.Create(ctx, personID, sessionID, session.Cost)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking removes the booking, freeing one capacity slot, unless the
// session starts within the cancellation cutoff window.
func (s *BookingService) CancelBooking(ctx context.Context, actor models.Actor, personID, sessionID int64) (*models.Booking, error) {
	if !policy.Authorized(actor.Roles, policy.ActionCancelOwn) {
		return nil, ErrNotAuthorized
	}
	if personID != actor.ID && !actor.Roles.Has(policy.RoleAdmin) {
		return nil, ErrNotAuthorized
	}

	if _, err := s.bookings.Get(ctx, personID, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if s.now().After(session.Datetime.Add(-s.cancelCutoff)) {
		return nil, ErrTooLateToCancel
	}

	booking, err := s.bookings.Delete(ctx, personID, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// MarkAttended records that the person turned up. Attendance only moves
// false to true, and only once the session has started; a second mark is
// an error rather than a silent no-op.
func (s *BookingService) MarkAttended(ctx context.Context, actor models.Actor, sessionID, personID int64) (*models.Booking, error) {
	if !policy.Authorized(actor.Roles, policy.ActionMarkAttendance) {
		return nil, ErrNotAuthorized
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if s.now().Before(session.Datetime) {
		return nil, ErrSessionNotStarted
	}

	booking, err := s.bookings.Get(ctx, personID, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.Attended {
		return nil, ErrAlreadyMarked
	}

	// The update is conditional on attended still being false, so a
	// concurrent mark that slipped in after the read surfaces here.
	updated, err := s.bookings.MarkAttended(ctx, personID, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyMarked
		}
		return nil, err
	}
	return updated, nil
}

// ListBookings returns enriched booking rows. Members only see their own
// bookings; viewing someone else's requires the admin role.
func (s *BookingService) ListBookings(ctx context.Context, actor models.Actor, filter repository.BookingListFilter, page, limit int) ([]models.BookingDetail, int, error) {
	ownOnly := filter.PersonID != nil && *filter.PersonID == actor.ID
	if !ownOnly && !policy.Authorized(actor.Roles, policy.ActionViewAllBookings) {
		return nil, 0, ErrNotAuthorized
	}
	if ownOnly && !policy.Authorized(actor.Roles, policy.ActionViewOwnBookings) {
		return nil, 0, ErrNotAuthorized
	}

	total, err := s.bookings.CountDetailed(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	bookings, err := s.bookings.ListDetailed(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// AttendanceStats is the admin report of attended classes per person.
func (s *BookingService) AttendanceStats(ctx context.Context, actor models.Actor, from, to *time.Time, sessionTypes []int32) ([]models.AttendanceStat, error) {
	if !policy.Authorized(actor.Roles, policy.ActionViewStats) {
		return nil, ErrNotAuthorized
	}
	return s.bookings.AttendanceStats(ctx, from, to, sessionTypes)
}

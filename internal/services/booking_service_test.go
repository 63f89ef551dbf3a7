package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/internal/repository"
)

type stubSessionReader struct {
	byID map[int64]*models.Session
}

func (s *stubSessionReader) GetByID(_ context.Context, sessionID int64) (*models.Session, error) {
	if session, ok := s.byID[sessionID]; ok {
		return session, nil
	}
	return nil, pgx.ErrNoRows
}

type stubBookingStore struct {
	bookings     map[[2]int64]*models.Booking
	deleted      [][2]int64
	lastAttended *models.Booking
	listResult   []models.BookingDetail
	countResult  int
	statsResult  []models.AttendanceStat
	lastFilter   repository.BookingListFilter
	lastOffset   int
	afterGet     func()
}

func bookingKey(personID, sessionID int64) [2]int64 {
	return [2]int64{personID, sessionID}
}

func (s *stubBookingStore) Get(_ context.Context, personID, sessionID int64) (*models.Booking, error) {
	b, ok := s.bookings[bookingKey(personID, sessionID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	row := *b
	if s.afterGet != nil {
		s.afterGet()
	}
	return &row, nil
}

func (s *stubBookingStore) Delete(_ context.Context, personID, sessionID int64) (*models.Booking, error) {
	key := bookingKey(personID, sessionID)
	b, ok := s.bookings[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	delete(s.bookings, key)
	s.deleted = append(s.deleted, key)
	return b, nil
}

func (s *stubBookingStore) MarkAttended(_ context.Context, personID, sessionID int64) (*models.Booking, error) {
	b, ok := s.bookings[bookingKey(personID, sessionID)]
	if !ok || b.Attended {
		return nil, pgx.ErrNoRows
	}
	updated := *b
	updated.Attended = true
	s.bookings[bookingKey(personID, sessionID)] = &updated
	s.lastAttended = &updated
	return &updated, nil
}

func (s *stubBookingStore) ListDetailed(_ context.Context, filter repository.BookingListFilter, _, offset int) ([]models.BookingDetail, error) {
	s.lastFilter = filter
	s.lastOffset = offset
	return s.listResult, nil
}

func (s *stubBookingStore) CountDetailed(_ context.Context, _ repository.BookingListFilter) (int, error) {
	return s.countResult, nil
}

func (s *stubBookingStore) AttendanceStats(_ context.Context, _, _ *time.Time, _ []int32) ([]models.AttendanceStat, error) {
	return s.statsResult, nil
}

var (
	memberActor  = models.Actor{ID: 1, Email: "m@example.com", Roles: policy.RoleSet{policy.RoleMember: true}}
	trainerActor = models.Actor{ID: 5, Email: "t@example.com", Roles: policy.RoleSet{policy.RoleTrainer: true}}
	adminActor   = models.Actor{ID: 9, Email: "a@example.com", Roles: policy.RoleSet{policy.RoleAdmin: true}}
)

func newBookingFixture(t *testing.T) (*BookingService, *stubSessionReader, *stubBookingStore) {
	t.Helper()
	sessions := &stubSessionReader{byID: map[int64]*models.Session{}}
	bookings := &stubBookingStore{bookings: map[[2]int64]*models.Booking{}}
	service := NewBookingService(nil, sessions, bookings, time.Hour)
	service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return service, sessions, bookings
}

func TestCreateBookingForSomeoneElseRequiresAdmin(t *testing.T) {
	service, _, _ := newBookingFixture(t)

	if _, err := service.CreateBooking(context.Background(), memberActor, 2, 100); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestCreateBookingUnknownSession(t *testing.T) {
	service, _, _ := newBookingFixture(t)

	if _, err := service.CreateBooking(context.Background(), memberActor, memberActor.ID, 100); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateBookingSessionInPast(t *testing.T) {
	service, sessions, _ := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(-time.Minute),
	}

	if _, err := service.CreateBooking(context.Background(), memberActor, memberActor.ID, 100); err != ErrSessionInPast {
		t.Errorf("expected ErrSessionInPast, got %v", err)
	}
}

func TestCancelBookingNotFound(t *testing.T) {
	service, _, _ := newBookingFixture(t)

	if _, err := service.CancelBooking(context.Background(), memberActor, memberActor.ID, 100); err != ErrBookingNotFound {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestCancelBookingInsideCutoff(t *testing.T) {
	service, sessions, bookings := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(30 * time.Minute), // cutoff is an hour
	}
	bookings.bookings[bookingKey(1, 100)] = &models.Booking{PersonID: 1, SessionID: 100}

	if _, err := service.CancelBooking(context.Background(), memberActor, memberActor.ID, 100); err != ErrTooLateToCancel {
		t.Errorf("expected ErrTooLateToCancel, got %v", err)
	}
	if len(bookings.deleted) != 0 {
		t.Errorf("booking must not be deleted inside the cutoff")
	}
}

func TestCancelBookingOutsideCutoff(t *testing.T) {
	service, sessions, bookings := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(2 * time.Hour),
	}
	bookings.bookings[bookingKey(1, 100)] = &models.Booking{PersonID: 1, SessionID: 100, CreditsUsed: 2}

	booking, err := service.CancelBooking(context.Background(), memberActor, memberActor.ID, 100)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if booking.CreditsUsed != 2 {
		t.Errorf("expected the deleted booking to be returned, got %+v", booking)
	}
	if len(bookings.deleted) != 1 {
		t.Errorf("expected exactly one deletion, got %d", len(bookings.deleted))
	}
}

func TestCancelSomeoneElsesBookingAsAdmin(t *testing.T) {
	service, sessions, bookings := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(2 * time.Hour),
	}
	bookings.bookings[bookingKey(1, 100)] = &models.Booking{PersonID: 1, SessionID: 100}

	if _, err := service.CancelBooking(context.Background(), adminActor, 1, 100); err != nil {
		t.Errorf("admin should be able to cancel any booking, got %v", err)
	}
}

func TestMarkAttendedRequiresTrainerOrAdmin(t *testing.T) {
	service, _, _ := newBookingFixture(t)

	if _, err := service.MarkAttended(context.Background(), memberActor, 100, 1); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for member, got %v", err)
	}
}

func TestMarkAttendedBeforeSessionStart(t *testing.T) {
	service, sessions, _ := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(time.Minute),
	}

	if _, err := service.MarkAttended(context.Background(), trainerActor, 100, 1); err != ErrSessionNotStarted {
		t.Errorf("expected ErrSessionNotStarted, got %v", err)
	}
}

func TestMarkAttendedNoBooking(t *testing.T) {
	service, sessions, _ := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(-time.Hour),
	}

	if _, err := service.MarkAttended(context.Background(), trainerActor, 100, 1); err != ErrBookingNotFound {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestMarkAttendedTwice(t *testing.T) {
	service, sessions, bookings := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(-time.Hour),
	}
	bookings.bookings[bookingKey(1, 100)] = &models.Booking{PersonID: 1, SessionID: 100, Attended: true}

	if _, err := service.MarkAttended(context.Background(), trainerActor, 100, 1); err != ErrAlreadyMarked {
		t.Errorf("expected ErrAlreadyMarked, got %v", err)
	}
}

func TestMarkAttendedLosesRaceToConcurrentMark(t *testing.T) {
	service, sessions, bookings := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(-time.Hour),
	}
	bookings.bookings[bookingKey(1, 100)] = &models.Booking{PersonID: 1, SessionID: 100}

	// Another mark lands between the read and the conditional update.
	bookings.afterGet = func() {
		bookings.bookings[bookingKey(1, 100)].Attended = true
	}

	if _, err := service.MarkAttended(context.Background(), trainerActor, 100, 1); err != ErrAlreadyMarked {
		t.Errorf("expected ErrAlreadyMarked when the update finds attended already set, got %v", err)
	}
}

func TestMarkAttendedHappyPath(t *testing.T) {
	service, sessions, bookings := newBookingFixture(t)
	sessions.byID[100] = &models.Session{
		ID:       100,
		Datetime: service.now().Add(-time.Hour),
	}
	bookings.bookings[bookingKey(1, 100)] = &models.Booking{PersonID: 1, SessionID: 100}

	booking, err := service.MarkAttended(context.Background(), trainerActor, 100, 1)
	if err != nil {
		t.Fatalf("MarkAttended: %v", err)
	}
	if !booking.Attended {
		t.Errorf("expected attended=true, got %+v", booking)
	}
}

func TestListBookingsOwnAllowedForMember(t *testing.T) {
	service, _, bookings := newBookingFixture(t)
	bookings.countResult = 3
	personID := memberActor.ID

	_, total, err := service.ListBookings(context.Background(), memberActor, repository.BookingListFilter{PersonID: &personID}, 2, 10)
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if bookings.lastOffset != 10 {
		t.Errorf("expected offset 10 for page 2, got %d", bookings.lastOffset)
	}
}

func TestListBookingsOthersRequiresAdmin(t *testing.T) {
	service, _, _ := newBookingFixture(t)
	otherID := int64(2)

	if _, _, err := service.ListBookings(context.Background(), memberActor, repository.BookingListFilter{PersonID: &otherID}, 1, 10); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if _, _, err := service.ListBookings(context.Background(), memberActor, repository.BookingListFilter{}, 1, 10); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for unfiltered list, got %v", err)
	}
}

func TestAttendanceStatsRequiresAdmin(t *testing.T) {
	service, _, bookings := newBookingFixture(t)
	bookings.statsResult = []models.AttendanceStat{{PersonID: 1, AttendedCount: 4}}

	if _, err := service.AttendanceStats(context.Background(), trainerActor, nil, nil, nil); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized for trainer, got %v", err)
	}

	stats, err := service.AttendanceStats(context.Background(), adminActor, nil, nil, nil)
	if err != nil {
		t.Fatalf("AttendanceStats: %v", err)
	}
	if len(stats) != 1 {
		t.Errorf("expected 1 stat row, got %d", len(stats))
	}
}

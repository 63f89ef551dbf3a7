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

type stubSessionStore struct {
	lastCreate repository.CreateSessionInput
	createErr  error
	listResult []models.SessionDetail
	deleteErr  error
}

func (s *stubSessionStore) Create(_ context.Context, input repository.CreateSessionInput) (*models.Session, error) {
	s.lastCreate = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Session{
		ID:            1,
		Datetime:      input.Datetime,
		DurationMins:  input.DurationMins,
		SessionTypeID: input.SessionTypeID,
		Cost:          input.Cost,
	}, nil
}

func (s *stubSessionStore) GetByID(_ context.Context, _ int64) (*models.Session, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubSessionStore) Update(_ context.Context, sessionID int64, input repository.CreateSessionInput) (*models.Session, error) {
	s.lastCreate = input
	return &models.Session{ID: sessionID, Cost: input.Cost}, nil
}

func (s *stubSessionStore) Delete(_ context.Context, _ int64) error {
	return s.deleteErr
}

func (s *stubSessionStore) ListDetailed(_ context.Context, _ repository.SessionListFilter) ([]models.SessionDetail, error) {
	return s.listResult, nil
}

type stubSessionTypeStore struct {
	byID      map[int32]*models.SessionType
	createErr error
	deleteErr error
}

func (s *stubSessionTypeStore) Create(_ context.Context, name string, requiresTrainer bool, cost int16) (*models.SessionType, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.SessionType{ID: 1, Name: name, RequiresTrainer: requiresTrainer, Cost: cost}, nil
}

func (s *stubSessionTypeStore) GetByID(_ context.Context, id int32) (*models.SessionType, error) {
	if st, ok := s.byID[id]; ok {
		return st, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubSessionTypeStore) List(_ context.Context) ([]models.SessionType, error) {
	return nil, nil
}

func (s *stubSessionTypeStore) Update(_ context.Context, st models.SessionType) (*models.SessionType, error) {
	return &st, nil
}

func (s *stubSessionTypeStore) Delete(_ context.Context, _ int32) error {
	return s.deleteErr
}

type stubLocationStore struct {
	byID map[int32]*models.Location
}

func (s *stubLocationStore) Create(_ context.Context, name, address string) (*models.Location, error) {
	return &models.Location{ID: 1, Name: name, Address: address}, nil
}

func (s *stubLocationStore) GetByID(_ context.Context, id int32) (*models.Location, error) {
	if loc, ok := s.byID[id]; ok {
		return loc, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubLocationStore) List(_ context.Context) ([]models.Location, error) {
	return nil, nil
}

func (s *stubLocationStore) Update(_ context.Context, loc models.Location) (*models.Location, error) {
	return &loc, nil
}

func (s *stubLocationStore) Delete(_ context.Context, _ int32) error {
	return nil
}

func newCatalogFixture(t *testing.T) (*CatalogService, *stubSessionStore, *stubSessionTypeStore, *stubPersonStore) {
	t.Helper()
	sessions := &stubSessionStore{}
	sessionTypes := &stubSessionTypeStore{byID: map[int32]*models.SessionType{
		1: {ID: 1, Name: "Circuits", RequiresTrainer: true, Cost: 2},
		2: {ID: 2, Name: "Open Gym", RequiresTrainer: false, Cost: 1},
	}}
	locations := &stubLocationStore{byID: map[int32]*models.Location{
		7: {ID: 7, Name: "Main Hall", Address: "1 High St"},
	}}
	persons := &stubPersonStore{byID: map[int64]*models.Person{
		10: {ID: 10, Name: "Terry", Roles: policy.RoleSet{policy.RoleTrainer: true}},
		20: {ID: 20, Name: "Mel", Roles: policy.RoleSet{policy.RoleMember: true}},
		30: {ID: 30, Name: "Ana", Roles: policy.RoleSet{policy.RoleAdmin: true}},
	}}
	service := NewCatalogService(sessions, sessionTypes, locations, persons)
	return service, sessions, sessionTypes, persons
}

func validSessionInput() SessionInput {
	trainerID := int64(10)
	return SessionInput{
		Datetime:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		DurationMins:  60,
		SessionTypeID: 1,
		TrainerID:     &trainerID,
	}
}

func TestCreateSessionDefaultsCostFromType(t *testing.T) {
	service, sessions, _, _ := newCatalogFixture(t)

	session, err := service.CreateSession(context.Background(), validSessionInput())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Cost != 2 {
		t.Errorf("expected cost 2 inherited from session type, got %d", session.Cost)
	}
	if sessions.lastCreate.Cost != 2 {
		t.Errorf("expected repo input cost 2, got %d", sessions.lastCreate.Cost)
	}
}

func TestCreateSessionCostOverride(t *testing.T) {
	service, sessions, _, _ := newCatalogFixture(t)

	input := validSessionInput()
	cost := int16(5)
	input.Cost = &cost

	if _, err := service.CreateSession(context.Background(), input); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sessions.lastCreate.Cost != 5 {
		t.Errorf("expected cost override 5, got %d", sessions.lastCreate.Cost)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	service, _, _, _ := newCatalogFixture(t)
	badCost := int16(-1)
	badType := validSessionInput()
	badType.SessionTypeID = 99
	noTrainer := validSessionInput()
	noTrainer.TrainerID = nil
	memberTrainer := validSessionInput()
	memberID := int64(20)
	memberTrainer.TrainerID = &memberID
	ghostTrainer := validSessionInput()
	ghostID := int64(99)
	ghostTrainer.TrainerID = &ghostID
	badLocation := validSessionInput()
	badLocationID := int32(99)
	badLocation.LocationID = &badLocationID
	zeroDuration := validSessionInput()
	zeroDuration.DurationMins = 0
	negativeCost := validSessionInput()
	negativeCost.Cost = &badCost

	cases := []struct {
		name  string
		input SessionInput
		want  error
	}{
		{"unknown session type", badType, ErrUnknownReference},
		{"trainer required", noTrainer, ErrTrainerRequired},
		{"trainer without role", memberTrainer, ErrNotATrainer},
		{"unknown trainer", ghostTrainer, ErrUnknownReference},
		{"unknown location", badLocation, ErrUnknownReference},
		{"zero duration", zeroDuration, ErrInvalidDuration},
		{"negative cost", negativeCost, ErrInvalidCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateSession(context.Background(), tc.input); err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSessionAcceptsAdminAsTrainer(t *testing.T) {
	service, _, _, _ := newCatalogFixture(t)

	input := validSessionInput()
	adminID := int64(30)
	input.TrainerID = &adminID

	if _, err := service.CreateSession(context.Background(), input); err != nil {
		t.Errorf("admins may be assigned as trainers, got %v", err)
	}
}

func TestCreateSessionWithoutTrainerWhenTypeAllows(t *testing.T) {
	service, _, _, _ := newCatalogFixture(t)

	input := validSessionInput()
	input.SessionTypeID = 2
	input.TrainerID = nil

	if _, err := service.CreateSession(context.Background(), input); err != nil {
		t.Errorf("trainerless session should be allowed for this type, got %v", err)
	}
}

func TestCreateSessionTypeDuplicateName(t *testing.T) {
	service, _, sessionTypes, _ := newCatalogFixture(t)
	sessionTypes.createErr = uniqueViolation()

	if _, err := service.CreateSessionType(context.Background(), "Circuits", true, 2); err != ErrDuplicateSessionType {
		t.Errorf("expected ErrDuplicateSessionType, got %v", err)
	}
}

func TestCreateSessionTypeNegativeCost(t *testing.T) {
	service, _, _, _ := newCatalogFixture(t)

	if _, err := service.CreateSessionType(context.Background(), "Yoga", false, -1); err != ErrInvalidCost {
		t.Errorf("expected ErrInvalidCost, got %v", err)
	}
}

func TestDeleteSessionTypeInUse(t *testing.T) {
	service, _, sessionTypes, _ := newCatalogFixture(t)
	sessionTypes.deleteErr = foreignKeyViolation()

	if err := service.DeleteSessionType(context.Background(), 1); err != ErrReferenceInUse {
		t.Errorf("expected ErrReferenceInUse, got %v", err)
	}
}

func TestDeleteSessionNotFound(t *testing.T) {
	service, sessions, _, _ := newCatalogFixture(t)
	sessions.deleteErr = pgx.ErrNoRows

	if err := service.DeleteSession(context.Background(), 42); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListSessionsByDateGrouping(t *testing.T) {
	service, sessions, _, _ := newCatalogFixture(t)
	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sessions.listResult = []models.SessionDetail{
		{Session: models.Session{ID: 1, Datetime: day1.Add(9 * time.Hour)}},
		{Session: models.Session{ID: 2, Datetime: day1.Add(18 * time.Hour)}},
		{Session: models.Session{ID: 3, Datetime: day2.Add(9 * time.Hour)}},
	}

	grouped, err := service.ListSessionsByDate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ListSessionsByDate: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("expected 2 days, got %d", len(grouped))
	}
	if grouped[0].Date != "2026-03-01" || len(grouped[0].Sessions) != 2 {
		t.Errorf("unexpected first day: %+v", grouped[0])
	}
	if grouped[0].Sessions[0].ID != 1 || grouped[0].Sessions[1].ID != 2 {
		t.Errorf("in-day order not preserved: %+v", grouped[0].Sessions)
	}
	if grouped[1].Date != "2026-03-02" || len(grouped[1].Sessions) != 1 {
		t.Errorf("unexpected second day: %+v", grouped[1])
	}
}

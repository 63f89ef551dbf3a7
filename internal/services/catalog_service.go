package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/internal/repository"
)

var (
	ErrUnknownReference     = errors.New("referenced session type, location or trainer does not exist")
	ErrTrainerRequired      = errors.New("this session type requires a trainer")
	ErrNotATrainer          = errors.New("the assigned trainer does not hold the trainer role")
	ErrInvalidCost          = errors.New("cost must not be negative")
	ErrInvalidDuration      = errors.New("duration must be greater than 0")
	ErrDuplicateSessionType = errors.New("a session type already exists with this name")
	ErrReferenceInUse       = errors.New("cannot delete reference data that sessions still use")
	ErrSessionNotFound      = errors.New("session not found")
)

type sessionStore interface {
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	Update(ctx context.Context, sessionID int64, input repository.CreateSessionInput) (*models.Session, error)
	Delete(ctx context.Context, sessionID int64) error
	ListDetailed(ctx context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, error)
}

type sessionTypeStore interface {
	Create(ctx context.Context, name string, requiresTrainer bool, cost int16) (*models.SessionType, error)
	GetByID(ctx context.Context, id int32) (*models.SessionType, error)
	List(ctx context.Context) ([]models.SessionType, error)
	Update(ctx context.Context, st models.SessionType) (*models.SessionType, error)
	Delete(ctx context.Context, id int32) error
}

type locationStore interface {
	Create(ctx context.Context, name, address string) (*models.Location, error)
	GetByID(ctx context.Context, id int32) (*models.Location, error)
	List(ctx context.Context) ([]models.Location, error)
	Update(ctx context.Context, loc models.Location) (*models.Location, error)
	Delete(ctx context.Context, id int32) error
}

type trainerReader interface {
	GetByID(ctx context.Context, id int64) (*models.Person, error)
}

type CatalogService struct {
	sessions     sessionStore
	sessionTypes sessionTypeStore
	locations    locationStore
	persons      trainerReader
}

func NewCatalogService(
	sessions sessionStore,
	sessionTypes sessionTypeStore,
	locations locationStore,
	persons trainerReader,
) *CatalogService {
	return &CatalogService{
		sessions:     sessions,
		sessionTypes: sessionTypes,
		locations:    locations,
		persons:      persons,
	}
}

type SessionInput struct {
	Datetime        time.Time
	DurationMins    int
	SessionTypeID   int32
	LocationID      *int32
	TrainerID       *int64
	MaxBookingCount *int64
	Notes           *string

	// Cost overrides the session type's default when set.
	Cost *int16
}

func (s *CatalogService) CreateSession(ctx context.Context, input SessionInput) (*models.Session, error) {
	repoInput, err := s.validateSessionInput(ctx, input)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, *repoInput)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	return session, nil
}

// UpdateSession reschedules or reprices a session. Existing bookings keep
// the credits they were charged at booking time.
func (s *CatalogService) UpdateSession(ctx context.Context, sessionID int64, input SessionInput) (*models.Session, error) {
	repoInput, err := s.validateSessionInput(ctx, input)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Update(ctx, sessionID, *repoInput)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	return session, nil
}

func (s *CatalogService) DeleteSession(ctx context.Context, sessionID int64) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (s *CatalogService) ListSessions(ctx context.Context, from, to *time.Time) ([]models.SessionDetail, error) {
	return s.sessions.ListDetailed(ctx, repository.SessionListFilter{From: from, To: to})
}

// ListSessionsByDate groups the schedule by calendar day, preserving the
// chronological order inside each day.
func (s *CatalogService) ListSessionsByDate(ctx context.Context, from, to *time.Time) ([]models.SessionDate, error) {
	sessions, err := s.ListSessions(ctx, from, to)
	if err != nil {
		return nil, err
	}

	grouped := make([]models.SessionDate, 0)
	byDate := map[string]int{}
	for _, session := range sessions {
		date := session.Datetime.UTC().Format("2006-01-02")
		idx, ok := byDate[date]
		if !ok {
			grouped = append(grouped, models.SessionDate{Date: date})
			idx = len(grouped) - 1
			byDate[date] = idx
		}
		grouped[idx].Sessions = append(grouped[idx].Sessions, session)
	}
	return grouped, nil
}

func (s *CatalogService) CreateSessionType(ctx context.Context, name string, requiresTrainer bool, cost int16) (*models.SessionType, error) {
	if cost < 0 {
		return nil, ErrInvalidCost
	}
	st, err := s.sessionTypes.Create(ctx, name, requiresTrainer, cost)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateSessionType
		}
		return nil, err
	}
	return st, nil
}

func (s *CatalogService) ListSessionTypes(ctx context.Context) ([]models.SessionType, error) {
	return s.sessionTypes.List(ctx)
}

func (s *CatalogService) UpdateSessionType(ctx context.Context, st models.SessionType) (*models.SessionType, error) {
	if st.Cost < 0 {
		return nil, ErrInvalidCost
	}
	updated, err := s.sessionTypes.Update(ctx, st)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownReference
		}
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateSessionType
		}
		return nil, err
	}
	return updated, nil
}

func (s *CatalogService) DeleteSessionType(ctx context.Context, id int32) error {
	if err := s.sessionTypes.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownReference
		}
		if repository.IsForeignKeyViolation(err) {
			return ErrReferenceInUse
		}
		return err
	}
	return nil
}

func (s *CatalogService) CreateLocation(ctx context.Context, name, address string) (*models.Location, error) {
	return s.locations.Create(ctx, name, address)
}

func (s *CatalogService) ListLocations(ctx context.Context) ([]models.Location, error) {
	return s.locations.List(ctx)
}

func (s *CatalogService) UpdateLocation(ctx context.Context, loc models.Location) (*models.Location, error) {
	updated, err := s.locations.Update(ctx, loc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	return updated, nil
}

func (s *CatalogService) DeleteLocation(ctx context.Context, id int32) error {
	if err := s.locations.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownReference
		}
		if repository.IsForeignKeyViolation(err) {
			return ErrReferenceInUse
		}
		return err
	}
	return nil
}

func (s *CatalogService) validateSessionInput(ctx context.Context, input SessionInput) (*repository.CreateSessionInput, error) {
	if input.DurationMins <= 0 {
		return nil, ErrInvalidDuration
	}
	if input.Cost != nil && *input.Cost < 0 {
		return nil, ErrInvalidCost
	}

	sessionType, err := s.sessionTypes.GetByID(ctx, input.SessionTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownReference
		}
		return nil, err
	}
	if sessionType.RequiresTrainer && input.TrainerID == nil {
		return nil, ErrTrainerRequired
	}

	if input.LocationID != nil {
		if _, err := s.locations.GetByID(ctx, *input.LocationID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrUnknownReference
			}
			return nil, err
		}
	}

	if input.TrainerID != nil {
		trainer, err := s.persons.GetByID(ctx, *input.TrainerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrUnknownReference
			}
			return nil, err
		}
		if !trainer.Roles.Has(policy.RoleTrainer) && !trainer.Roles.Has(policy.RoleAdmin) {
			return nil, ErrNotATrainer
		}
	}

	cost := sessionType.Cost
	if input.Cost != nil {
		cost = *input.Cost
	}

	return &repository.CreateSessionInput{
		Datetime:        input.Datetime,
		DurationMins:    input.DurationMins,
		SessionTypeID:   input.SessionTypeID,
		LocationID:      input.LocationID,
		TrainerID:       input.TrainerID,
		MaxBookingCount: input.MaxBookingCount,
		Notes:           input.Notes,
		Cost:            cost,
	}, nil
}

package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
	"github.com/njbartlett/pfnext-backend/internal/repository"
	"github.com/njbartlett/pfnext-backend/pkg/utils"
)

var (
	ErrDuplicateEmail        = errors.New("a person already exists with this email address")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidName           = errors.New("name must not be empty")
	ErrInvalidPhone          = errors.New("phone must be digits with an optional leading +")
	ErrInvalidCredentials    = errors.New("incorrect email or password")
	ErrPasswordResetRequired = errors.New("please reset your password")
	ErrUnsuitablePassword    = errors.New("new password must be at least 8 characters and differ from the current one")
	ErrPersonNotFound        = errors.New("person not found")
)

const minPasswordLength = 8

type personStore interface {
	Create(ctx context.Context, input repository.CreatePersonInput) (*models.Person, error)
	GetByEmail(ctx context.Context, email string) (*models.Person, error)
	GetByID(ctx context.Context, id int64) (*models.Person, error)
	List(ctx context.Context) ([]models.Person, error)
}

type passwordSetter interface {
	SetPassword(ctx context.Context, personID int64, newPassword string) error
}

type AuthService struct {
	persons   personStore
	passwords passwordSetter
}

func NewAuthService(persons personStore, passwords passwordSetter) *AuthService {
	return &AuthService{persons: persons, passwords: passwords}
}

type RegisterInput struct {
	Name  string
	Email string
	Phone *string
}

// Register creates a person with no password and the member role. The
// account becomes usable once the recovery flow sets a permanent password.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.Person, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	if input.Phone != nil && !validPhone(*input.Phone) {
		return nil, ErrInvalidPhone
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidName
	}

	person, err := s.persons.Create(ctx, repository.CreatePersonInput{
		Name:  strings.TrimSpace(input.Name),
		Email: email,
		Phone: input.Phone,
		Roles: policy.RoleSet{policy.RoleMember: true},
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return person, nil
}

// VerifyPassword authenticates by email and password. The error for an
// unknown email and for a wrong password is identical so callers cannot
// probe which addresses have accounts.
func (s *AuthService) VerifyPassword(ctx context.Context, email, candidate string) (*models.Person, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	person, err := s.persons.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if person.PasswordHash == nil {
		return nil, ErrPasswordResetRequired
	}
	if !utils.CheckPassword(candidate, *person.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return person, nil
}

// ChangePassword verifies the current password before replacing it. Any
// live temporary password is cleared by the setter.
func (s *AuthService) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) (*models.Person, error) {
	person, err := s.VerifyPassword(ctx, email, currentPassword)
	if err != nil {
		return nil, err
	}
	if !suitablePassword(newPassword, currentPassword) {
		return nil, ErrUnsuitablePassword
	}
	if err := s.passwords.SetPassword(ctx, person.ID, newPassword); err != nil {
		return nil, err
	}
	return person, nil
}

func (s *AuthService) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	person, err := s.persons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	return person, nil
}

// ListPersons returns all people, optionally narrowed to those holding the
// given role.
func (s *AuthService) ListPersons(ctx context.Context, roleFilter *policy.Role) ([]models.Person, error) {
	persons, err := s.persons.List(ctx)
	if err != nil {
		return nil, err
	}
	if roleFilter == nil {
		return persons, nil
	}
	filtered := make([]models.Person, 0, len(persons))
	for _, person := range persons {
		if person.Roles.Has(*roleFilter) {
			filtered = append(filtered, person)
		}
	}
	return filtered, nil
}

func normalizeEmail(email string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}

func validPhone(phone string) bool {
	trimmed := strings.TrimSpace(phone)
	trimmed = strings.TrimPrefix(trimmed, "+")
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func suitablePassword(newPassword, currentPassword string) bool {
	return len(newPassword) >= minPasswordLength && newPassword != currentPassword
}

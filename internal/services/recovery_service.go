package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/pkg/utils"
)

var (
	ErrNoSuchRecovery   = errors.New("password reset has not been requested, or it has expired")
	ErrRecoveryExpired  = errors.New("temporary password has expired")
	ErrRecoveryMismatch = errors.New("incorrect email or password")
	ErrResendTooSoon    = errors.New("a reset email was sent recently, please wait before requesting another")
)

// Excludes characters that read ambiguously in email clients (0/O, 1/I/l).
const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const tempPasswordLength = 20

// Notifier delivers a freshly issued temporary password to its owner.
// Delivery is outside this subsystem; the recovery state is valid whether
// or not the notification arrives.
type Notifier interface {
	SendTempPassword(ctx context.Context, person *models.Person, tempPassword string, expiry time.Time, resetURL string) error
}

type personReader interface {
	GetByEmail(ctx context.Context, email string) (*models.Person, error)
}

type recoveryStore interface {
	Upsert(ctx context.Context, record models.TempPassword) error
	GetByPersonID(ctx context.Context, personID int64) (*models.TempPassword, error)
	SentSince(ctx context.Context, personID int64, since time.Time) (bool, error)
	DeleteByPersonID(ctx context.Context, personID int64) error
	DeleteExpired(ctx context.Context, now time.Time) error
}

type credentialWriter interface {
	SetPasswordClearingRecovery(ctx context.Context, personID int64, hash string) error
}

type RecoveryService struct {
	persons     personReader
	credentials credentialWriter
	recoveries  recoveryStore
	notifier    Notifier

	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
}

func NewRecoveryService(
	persons personReader,
	credentials credentialWriter,
	recoveries recoveryStore,
	notifier Notifier,
	ttl time.Duration,
	cooldown time.Duration,
) *RecoveryService {
	return &RecoveryService{
		persons:     persons,
		credentials: credentials,
		recoveries:  recoveries,
		notifier:    notifier,
		ttl:         ttl,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Issue creates a one-time password for the account, replacing any
// previous pending one, and hands it to the notifier. Only a bcrypt hash
// is stored.
func (s *RecoveryService) Issue(ctx context.Context, email, resetURL string) error {
	person, err := s.persons.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPersonNotFound
		}
		return err
	}
	return s.IssueForPerson(ctx, person, resetURL)
}

func (s *RecoveryService) IssueForPerson(ctx context.Context, person *models.Person, resetURL string) error {
	now := s.now()

	sentRecently, err := s.recoveries.SentSince(ctx, person.ID, now.Add(-s.cooldown))
	if err != nil {
		return err
	}
	if sentRecently {
		return ErrResendTooSoon
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		return err
	}

	expiry := now.Add(s.ttl)
	if err := s.recoveries.Upsert(ctx, models.TempPassword{
		PersonID: person.ID,
		Hash:     hash,
		Sent:     now,
		Expiry:   expiry,
	}); err != nil {
		return err
	}

	// Housekeeping; a failure here never blocks the issuance.
	if err := s.recoveries.DeleteExpired(ctx, now); err != nil {
		log.Printf("failed to clean expired temp passwords: %v", err)
	}

	return s.notifier.SendTempPassword(ctx, person, tempPassword, expiry, resetURL)
}

// Redeem exchanges a pending temporary password for a permanent one. On
// success the new password is stored and the recovery record removed in a
// single atomic step.
func (s *RecoveryService) Redeem(ctx context.Context, email, tempPassword, newPassword string) (*models.Person, error) {
	if !suitablePassword(newPassword, tempPassword) {
		return nil, ErrUnsuitablePassword
	}

	person, err := s.persons.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}

	record, err := s.recoveries.GetByPersonID(ctx, person.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchRecovery
		}
		return nil, err
	}

	if s.now().After(record.Expiry) {
		if err := s.recoveries.DeleteByPersonID(ctx, person.ID); err != nil {
			log.Printf("failed to delete expired temp password for person %d: %v", person.ID, err)
		}
		return nil, ErrRecoveryExpired
	}

	if !utils.CheckPassword(tempPassword, record.Hash) {
		return nil, ErrRecoveryMismatch
	}

	if err := s.SetPassword(ctx, person.ID, newPassword); err != nil {
		return nil, err
	}
	return person, nil
}

// SetPassword hashes and stores a permanent password, clearing any live
// temporary password. Safe to call repeatedly.
func (s *RecoveryService) SetPassword(ctx context.Context, personID int64, newPassword string) error {
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.credentials.SetPasswordClearingRecovery(ctx, personID, hash)
}

func generateTempPassword() (string, error) {
	alphabetLen := big.NewInt(int64(len(tempPasswordAlphabet)))
	out := make([]byte, tempPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}

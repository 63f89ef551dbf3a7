package models

import (
	"time"

	"github.com/njbartlett/pfnext-backend/internal/policy"
)

type Person struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Phone *string        `json:"phone"`
	Roles policy.RoleSet `json:"roles"`

	// PasswordHash is nil while the account is waiting on a password
	// reset. Never serialized.
	PasswordHash *string `json:"-"`
}

type TempPassword struct {
	PersonID int64     `json:"person_id"`
	Hash     string    `json:"-"`
	Sent     time.Time `json:"sent"`
	Expiry   time.Time `json:"expiry"`
}

package models

import "github.com/njbartlett/pfnext-backend/internal/policy"

// Actor identifies the authenticated caller of a request. It is built by
// the auth middleware from validated token claims and passed explicitly
// into every operation that needs authorization.
type Actor struct {
	ID    int64
	Email string
	Roles policy.RoleSet
}

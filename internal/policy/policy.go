package policy

import (
	"encoding/json"
	"sort"
	"strings"
)

// Role is one of the flat membership roles a person can hold. There is no
// hierarchy: admin does not imply trainer, and neither implies member.
type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known names.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// Action names a guarded operation. Mutating endpoints consult
// Authorized before touching storage.
type Action string

const (
	ActionBookOwn         Action = "book_own"
	ActionCancelOwn       Action = "cancel_own"
	ActionViewOwnBookings Action = "view_own_bookings"
	ActionManageSessions  Action = "manage_sessions"
	ActionMarkAttendance  Action = "mark_attendance"
	ActionViewAllBookings Action = "view_all_bookings"
	ActionViewStats       Action = "view_stats"
	ActionManagePeople    Action = "manage_people"
	ActionExportData      Action = "export_data"
)

// RoleSet is a set of roles. A person may hold several at once, e.g. a
// trainer who is also an admin.
type RoleSet map[Role]bool

// ParseRoleSet decodes the comma-separated form stored in person.roles.
// Unknown names are dropped.
func ParseRoleSet(s string) RoleSet {
	set := RoleSet{}
	for _, part := range strings.Split(s, ",") {
		switch Role(strings.TrimSpace(strings.ToLower(part))) {
		case RoleMember:
			set[RoleMember] = true
		case RoleTrainer:
			set[RoleTrainer] = true
		case RoleAdmin:
			set[RoleAdmin] = true
		}
	}
	return set
}

func (rs RoleSet) Has(role Role) bool {
	return rs[role]
}

// Names returns the roles in a stable order, for tokens and JSON.
func (rs RoleSet) Names() []string {
	names := make([]string, 0, len(rs))
	for role, ok := range rs {
		if ok {
			names = append(names, string(role))
		}
	}
	sort.Strings(names)
	return names
}

// Encode returns the comma-separated storage form.
func (rs RoleSet) Encode() string {
	return strings.Join(rs.Names(), ",")
}

// FromNames builds a set from role names, dropping unknown ones.
func FromNames(names []string) RoleSet {
	return ParseRoleSet(strings.Join(names, ","))
}

func (rs RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Names())
}

func (rs *RoleSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*rs = FromNames(names)
	return nil
}

// Authorized is the pure authorization predicate. Admins and trainers may
// manage sessions and attendance; members may only act on their own
// bookings. Everything else is admin only.
func Authorized(roles RoleSet, action Action) bool {
	switch action {
	case ActionBookOwn, ActionCancelOwn, ActionViewOwnBookings:
		return roles.Has(RoleMember) || roles.Has(RoleTrainer) || roles.Has(RoleAdmin)
	case ActionManageSessions, ActionMarkAttendance:
		return roles.Has(RoleTrainer) || roles.Has(RoleAdmin)
	case ActionViewAllBookings, ActionViewStats, ActionManagePeople, ActionExportData:
		return roles.Has(RoleAdmin)
	default:
		return false
	}
}

package models

import "time"

type Booking struct {
	PersonID    int64 `json:"person_id"`
	SessionID   int64 `json:"session_id"`
	Attended    bool  `json:"attended"`
	CreditsUsed int16 `json:"credits_used"`
}

// BookingDetail joins the booking with its person and session context for
// admin and member listings.
type BookingDetail struct {
	PersonID            int64       `json:"person_id"`
	PersonName          string      `json:"person_name"`
	PersonEmail         string      `json:"person_email"`
	SessionID           int64       `json:"session_id"`
	SessionDatetime     time.Time   `json:"session_datetime"`
	SessionDurationMins int         `json:"session_duration_mins"`
	SessionLocation     *Location   `json:"session_location"`
	SessionType         SessionType `json:"session_type"`
	Attended            bool        `json:"attended"`
	CreditsUsed         int16       `json:"credits_used"`
}

type AttendanceStat struct {
	PersonID      int64  `json:"person_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AttendedCount int64  `json:"attended_count"`
}

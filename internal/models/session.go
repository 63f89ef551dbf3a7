package models

import "time"

type SessionType struct {
	ID              int32  `json:"id"`
	Name            string `json:"name"`
	RequiresTrainer bool   `json:"requires_trainer"`
	Cost            int16  `json:"cost"`
}

type Location struct {
	ID      int32  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Session struct {
	ID              int64     `json:"id"`
	Datetime        time.Time `json:"datetime"`
	DurationMins    int       `json:"duration_mins"`
	SessionTypeID   int32     `json:"session_type"`
	LocationID      *int32    `json:"location"`
	TrainerID       *int64    `json:"trainer"`
	MaxBookingCount *int64    `json:"max_booking_count"`
	Notes           *string   `json:"notes"`
	Cost            int16     `json:"cost"`
}

// SessionDetail is the listing row with reference names resolved.
type SessionDetail struct {
	Session
	SessionTypeName string  `json:"session_type_name"`
	LocationName    *string `json:"location_name"`
	TrainerName     *string `json:"trainer_name"`
}

// SessionDate groups a day's sessions for the schedule view.
type SessionDate struct {
	Date     string          `json:"date"`
	Sessions []SessionDetail `json:"sessions"`
}

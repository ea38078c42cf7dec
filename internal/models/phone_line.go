package models

import "time"

// MaxActivePhoneLines is the regulatory cap of concurrently active lines
// per national ID.
const MaxActivePhoneLines = 5

type PhoneLine struct {
	ID           string    `json:"id"`
	IDNumber     string    `json:"id_number"`
	PhoneNumber  string    `json:"phone_number"`
	IsActive     bool      `json:"is_active"`
	RegisteredAt time.Time `json:"registered_at"`
}

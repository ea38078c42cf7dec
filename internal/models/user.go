package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
)

var phoneRe = regexp.MustCompile(`^\+?254\d{9}$`)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IDNumber     string    `json:"id_number,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 {
		return errors.New("username too short")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.PhoneNumber != "" && !phoneRe.MatchString(u.PhoneNumber) {
		return errors.New("phone number must be in the format +254XXXXXXXXX")
	}
	if u.IDNumber != "" && !ValidNationalID(u.IDNumber) {
		return errors.New("national ID must be 7 or 8 digits")
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

// ValidNationalID accepts 7 or 8 digit Kenyan IDs.
func ValidNationalID(v string) bool {
	if len(v) != 7 && len(v) != 8 {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

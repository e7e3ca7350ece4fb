package domain

import "time"

type User struct {
	ID           int32      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	ConfirmedOn  *time.Time `json:"confirmed_on,omitempty"`
	CreatedOn    time.Time  `json:"created_on"`
	UpdatedOn    time.Time  `json:"updated_on"`
}

// Confirmed reports whether the user has completed email confirmation.
func (u *User) Confirmed() bool {
	return u.ConfirmedOn != nil
}

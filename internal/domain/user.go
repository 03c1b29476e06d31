package domain

import "time"

// User is the identity provider's view of an account.
type User struct {
	ID        int32      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Verified  bool       `json:"verified"`
	RemovedOn *time.Time `json:"removed_on,omitempty"`
}

// CanBorrow reports whether the account may take part in a loan.
func (u *User) CanBorrow() bool {
	return u.Verified && u.RemovedOn == nil
}

func (u *User) Participant() Participant {
	return Participant{UserID: u.ID, Email: u.Email, Name: u.Name}
}

type Participant struct {
	UserID int32  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
